// Package analysis is the client for the external document-analysis service.
// The service is an untrusted black box: it receives the two document
// references plus a fixed prompt and replies with a JSON verdict embedded in
// free-form text.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"certifai/internal/platform/config"
	"certifai/internal/verification/models"
	dErrors "certifai/pkg/domain-errors"
)

// Client invokes the external analysis service.
type Client interface {
	Analyze(ctx context.Context, certificateURL, verificationPDFURL string) (*models.AnalysisResult, error)
}

// analysisPrompt is the fixed prompt contract. The response schema named here
// must stay in sync with models.AnalysisResult.
const analysisPrompt = `You are a certificate verification assistant. Analyze two documents:
document A is a certificate image or PDF, document B is a screenshot of the
issuer's verification page. Extract from document A: name, institution_name,
program_name, issue_date, and a confidence_score in [0,1]. For document B,
return a confidence_score in [0,1] for whether it shows a matching valid
verification. Set verification_url_valid to true only if document B confirms
the certificate. Respond with a single JSON object:
{"document_a":{"name":...,"institution_name":...,"program_name":...,"issue_date":...,"confidence_score":...},
"document_b":{"confidence_score":...},"verification_url_valid":...,"total_verification":"pass"|"fail"}`

// request is the wire format of the analysis call.
type request struct {
	Prompt    string   `json:"prompt"`
	Documents []string `json:"documents"`
}

// response is the service's envelope; the verdict JSON is embedded in the
// Response text, possibly wrapped in markdown.
type response struct {
	Result struct {
		Response string `json:"response"`
	} `json:"result"`
}

// HTTPClient calls the analysis service over HTTP.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient constructs an analysis client from configuration.
// The timeout bounds the whole call; a timeout surfaces as an analysis error.
func NewHTTPClient(cfg config.AnalysisConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Analyze submits the two document references and parses the embedded verdict.
//
// Errors: always a domain error with code analysis_failed - on transport
// failure, non-success status, or a reply that cannot be coerced into the
// result shape. Never returns a silent default.
func (c *HTTPClient) Analyze(ctx context.Context, certificateURL, verificationPDFURL string) (*models.AnalysisResult, error) {
	payload, err := json.Marshal(request{
		Prompt:    analysisPrompt,
		Documents: []string{certificateURL, verificationPDFURL},
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAnalysisFailed, "encode analysis request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAnalysisFailed, "build analysis request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAnalysisFailed, "analysis service unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAnalysisFailed, "read analysis response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, dErrors.New(dErrors.CodeAnalysisFailed,
			fmt.Sprintf("analysis service returned status %d", resp.StatusCode))
	}

	var envelope response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAnalysisFailed, "decode analysis envelope")
	}

	result, ok := extractResult(envelope.Result.Response)
	if !ok {
		return nil, dErrors.New(dErrors.CodeAnalysisFailed, "no parseable verdict in analysis reply")
	}
	return result, nil
}
