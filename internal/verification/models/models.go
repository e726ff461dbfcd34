package models

import (
	"time"
)

// Status is the certificate verification status. The workflow only ever moves
// forward: pending -> in_progress -> {verified, rejected}. The terminal states
// never re-enter the workflow.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
)

// Terminal reports whether the status is an end state of the workflow.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CanTransition reports whether the state machine permits moving to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusVerified || next == StatusRejected
	case StatusInProgress:
		return next == StatusPending || next == StatusVerified || next == StatusRejected
	default:
		return false
	}
}

// User is read-only for the verification workflow.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Certificate is the unit of verification work. Only the verification status
// and details columns are mutated by this service.
type Certificate struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Title           string `json:"title"`
	InstitutionName string `json:"institution_name"`
	ProgramName     string `json:"program_name"`
	IssueDate       string `json:"issue_date"`

	// Required document references for the external analysis call.
	CertificateURL     string `json:"certificate_url"`
	VerificationURLPDF string `json:"verification_url_pdf"`
	VerificationURL    string `json:"verification_url,omitempty"`

	// Optional on-chain references; format-checked only, never dereferenced.
	ArweaveURL     *string `json:"arweave_url,omitempty"`
	NFTMintAddress *string `json:"nft_mint_address,omitempty"`

	Status    Status          `json:"verification_status"`
	Details   *AnalysisResult `json:"verification_details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasDocuments reports whether both required document references are present.
func (c *Certificate) HasDocuments() bool {
	return c.CertificateURL != "" && c.VerificationURLPDF != ""
}

// DocumentAnalysis holds the fields the analysis service extracted from the
// certificate document. Every field is untrusted and may be null.
type DocumentAnalysis struct {
	Name            *string  `json:"name"`
	InstitutionName *string  `json:"institution_name"`
	ProgramName     *string  `json:"program_name"`
	IssueDate       *string  `json:"issue_date"`
	ConfidenceScore *float64 `json:"confidence_score"`
}

// ScreenshotAnalysis holds the analysis of the verification-page screenshot.
type ScreenshotAnalysis struct {
	ConfidenceScore *float64 `json:"confidence_score"`
}

// AnalysisResult is the external analysis service's contract. The orchestrator
// treats every field as nullable; helpers below apply the zero-value reading.
type AnalysisResult struct {
	DocumentA            *DocumentAnalysis   `json:"document_a"`
	DocumentB            *ScreenshotAnalysis `json:"document_b"`
	VerificationURLValid *bool               `json:"verification_url_valid"`
	TotalVerification    *string             `json:"total_verification"`
}

// TotalVerificationPass is the value the analysis service returns when the
// documents corroborate each other.
const TotalVerificationPass = "pass"

// DocumentAScore returns the certificate-document confidence, 0 when missing.
func (r *AnalysisResult) DocumentAScore() float64 {
	if r == nil || r.DocumentA == nil || r.DocumentA.ConfidenceScore == nil {
		return 0
	}
	return *r.DocumentA.ConfidenceScore
}

// DocumentBScore returns the verification-page confidence, 0 when missing.
func (r *AnalysisResult) DocumentBScore() float64 {
	if r == nil || r.DocumentB == nil || r.DocumentB.ConfidenceScore == nil {
		return 0
	}
	return *r.DocumentB.ConfidenceScore
}

// URLValid returns the verification_url_valid flag, false when missing.
func (r *AnalysisResult) URLValid() bool {
	return r != nil && r.VerificationURLValid != nil && *r.VerificationURLValid
}

// Passed reports the service's own pass verdict combined with URL validity.
// This is the canonical decision for the status transition.
func (r *AnalysisResult) Passed() bool {
	if r == nil || r.TotalVerification == nil {
		return false
	}
	return *r.TotalVerification == TotalVerificationPass && r.URLValid()
}

// Outcome is what the orchestrator returns for one verification run.
type Outcome struct {
	Success       bool            `json:"success"`
	Status        Status          `json:"status,omitempty"`
	Message       string          `json:"message"`
	CorrelationID string          `json:"correlation_id"`
	Result        *AnalysisResult `json:"result,omitempty"`
	CachedResult  bool            `json:"cached,omitempty"`
}

// Workflow step names recorded in the durable verification log. Each step has
// a documented details schema (see LogRecord).
const (
	StepVerificationStarted   = "verification_started"
	StepDocumentCheck         = "document_check"
	StepCacheHit              = "cache_hit"
	StepVerificationProcess   = "verification_process"
	StepAnalysis              = "analysis"
	StepConfidenceReview      = "confidence_review"
	StepStatusUpdate          = "status_update"
	StepVerificationCompleted = "verification_completed"
)

// LogRecord is an append-only durable audit row. Never mutated or deleted.
//
// Details schemas by step:
//   - verification_started: {"correlation_id"}
//   - document_check:       {"certificate_url_present", "verification_url_pdf_present"}
//   - verification_process: {"started": true}
//   - analysis:             {"error"} on failure
//   - confidence_review:    {"overall_confidence", "passing", "reasons"}
//   - verification_completed: {"status", "result"}
type LogRecord struct {
	ID            string         `json:"id"`
	CertificateID string         `json:"certificate_id"`
	Step          string         `json:"verification_step"`
	Status        string         `json:"status"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
