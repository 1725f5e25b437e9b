package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/shared"
)

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status code is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Object returns the body as a JSON object, or nil when it is not one.
func (r *APIResponse) Object() map[string]any {
	obj, _ := r.JSONData.(map[string]any)
	return obj
}

// ResponseError is returned when the service answered with a non-success status.
type ResponseError struct {
	Response *APIResponse
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v: status %d", shared.ErrAPIRequest, e.Response.StatusCode)
}

func (e *ResponseError) Unwrap() error { return shared.ErrAPIRequest }

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Message string `json:"message"`
}

// AnalysisResponse is the body of the upload endpoint.
//
// Failures carry error (analysis errors) or detail (FastAPI errors) instead of the result fields.
type AnalysisResponse struct {
	Success        *bool           `json:"success"`
	WetPercentage  *float64        `json:"wet_percentage"`
	ProcessedImage *string         `json:"processed_image"`
	Message        string          `json:"message"`
	Error          string          `json:"error"`
	Detail         json.RawMessage `json:"detail"`
}

// Succeeded reports whether the body carries a true success flag.
func (a AnalysisResponse) Succeeded() bool {
	return a.Success != nil && *a.Success
}

// IsSuccess applies the service's success rule: a true success flag or a 2xx status.
func IsSuccess(resp *APIResponse) bool {
	if resp.OK() {
		return true
	}
	var body AnalysisResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return false
	}
	return body.Succeeded()
}

// DecodeAnalysis extracts an [models.AnalysisResult] from a successful upload response.
//
// The percentage is clamped to [0, 100]. A body without wet_percentage is an invalid response.
func DecodeAnalysis(resp *APIResponse) (*models.AnalysisResult, error) {
	var body AnalysisResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	if body.WetPercentage == nil {
		return nil, fmt.Errorf("%w: missing wet_percentage", shared.ErrInvalidResponse)
	}

	result := &models.AnalysisResult{
		WetPercentage: min(max(*body.WetPercentage, 0), 100),
		Message:       strings.TrimSpace(body.Message),
	}
	if body.ProcessedImage != nil {
		result.ProcessedImage = *body.ProcessedImage
	}
	return result, nil
}
