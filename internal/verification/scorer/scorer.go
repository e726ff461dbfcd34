// Package scorer implements the advisory confidence policy. It is a pure
// cross-check on the analysis service's raw scores; the orchestrator's
// canonical pass/fail decision comes from the service's own verdict, and the
// assessment computed here is recorded in the audit trail for review.
package scorer

import (
	"certifai/internal/verification/models"
)

// Weights and thresholds of the confidence policy.
const (
	documentWeight   = 0.5
	screenshotWeight = 0.3
	urlWeight        = 0.2

	passingThreshold    = 0.70
	documentThreshold   = 0.65
	screenshotThreshold = 0.60
)

// Reason strings are stable; dashboards key on them.
const (
	ReasonLowDocumentConfidence   = "low document confidence"
	ReasonLowScreenshotConfidence = "low verification-page confidence"
	ReasonInvalidVerificationURL  = "invalid verification URL"
	ReasonAllChecksPassed         = "all confidence checks passed"
)

// Assessment is the scorer's verdict on one analysis result.
type Assessment struct {
	OverallConfidence float64  `json:"overall_confidence"`
	Passing           bool     `json:"passing"`
	Reasons           []string `json:"reasons"`
}

// Score maps raw analysis scores to an advisory pass/fail decision with
// human-readable reasons. Missing scores count as zero and out-of-range
// scores are clamped; the result is deterministic and OverallConfidence is
// always in [0,1].
func Score(result *models.AnalysisResult) Assessment {
	docScore := clamp01(result.DocumentAScore())
	pageScore := clamp01(result.DocumentBScore())
	urlValid := result.URLValid()

	urlScore := 0.0
	if urlValid {
		urlScore = 1.0
	}
	overall := clamp01(documentWeight*docScore + screenshotWeight*pageScore + urlWeight*urlScore)

	passing := overall >= passingThreshold && urlValid && docScore >= documentThreshold

	var reasons []string
	if docScore < documentThreshold {
		reasons = append(reasons, ReasonLowDocumentConfidence)
	}
	if pageScore < screenshotThreshold {
		reasons = append(reasons, ReasonLowScreenshotConfidence)
	}
	if !urlValid {
		reasons = append(reasons, ReasonInvalidVerificationURL)
	}
	if len(reasons) == 0 && passing {
		reasons = append(reasons, ReasonAllChecksPassed)
	}

	return Assessment{
		OverallConfidence: overall,
		Passing:           passing,
		Reasons:           reasons,
	}
}

// clamp01 bounds an untrusted confidence score to the unit interval.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
