package analysis

import (
	"encoding/json"
	"regexp"
	"strings"

	"certifai/internal/verification/models"
)

// The analysis model wraps its JSON verdict in whatever prose or markdown it
// feels like. The extraction ladder below mirrors the upstream response style
// and must be tried in this order; the first successful parse wins:
//
//  1. fenced code block labelled json
//  2. any fenced code block
//  3. first {...} span anywhere in the text
//  4. the whole text as JSON
var (
	jsonFenceRe    = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	genericFenceRe = regexp.MustCompile("(?s)```\\s*(.*?)```")
	jsonObjectRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractResult pulls an AnalysisResult out of the model's textual reply.
// Returns false when no candidate parses.
func extractResult(text string) (*models.AnalysisResult, bool) {
	var candidates []string

	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := genericFenceRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := jsonObjectRe.FindString(text); m != "" {
		candidates = append(candidates, m)
	}
	candidates = append(candidates, text)

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var result models.AnalysisResult
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return &result, true
		}
	}
	return nil, false
}
