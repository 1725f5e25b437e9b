// Package classify turns failed responses from the analysis service into user-facing errors.
//
// [Classify] is pure: it never panics and always returns an [*Error] with a category and a
// non-empty message. Status codes take precedence over the body; the body is inspected in the
// order detail → error → message, as FastAPI and the analysis endpoint report failures.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/shared"
)

// Context tells the classifier which kind of request failed.
type Context int

const (
	// LoginContext is the credential exchange; a 401 means a wrong password.
	LoginContext Context = iota
	// AuthenticatedContext is any request made with a bearer token; a 401 means the session expired.
	AuthenticatedContext
)

// Display messages.
const (
	MsgAccountNotFound      = "Account not found. Please check your username/email."
	MsgIncorrectCredentials = "Incorrect password. Please try again."
	MsgInvalidCredentials   = "Invalid login credentials."
	MsgSessionExpired       = "Session expired. Please login again."
	MsgNetworkError         = "Error connecting to server. Please try again."
	MsgLoginRequired        = "Please login first."
	MsgLoginFailed          = "Login failed. Please check your credentials."
	MsgAnalysisFailed       = "Analysis failed. Please try again."

	analysisPrefix = "Analysis failed: "
)

// Error is a classified failure ready for display.
type Error struct {
	Category models.ErrorCategory
	Message  string
	Status   int      // HTTP status, 0 when no response was received
	Details  []string // individual validation messages
	sentinel error
	cause    error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the shared sentinel and, for transport failures, the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.sentinel}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// As extracts an [*Error] from err.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Classify maps a non-success response to an [*Error]. body is the raw response body; it may
// be empty or not JSON.
func Classify(status int, body []byte, ctx Context) *Error {
	var payload map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			payload = nil
		}
	}
	return ClassifyPayload(status, payload, ctx)
}

// ClassifyPayload is [Classify] for an already decoded JSON object.
func ClassifyPayload(status int, payload map[string]any, ctx Context) *Error {
	switch status {
	case http.StatusNotFound:
		return newError(models.CategoryAccountNotFound, MsgAccountNotFound, status)
	case http.StatusUnauthorized:
		if ctx == LoginContext {
			return newError(models.CategoryIncorrectCredentials, MsgIncorrectCredentials, status)
		}
		return newError(models.CategorySessionExpired, MsgSessionExpired, status)
	case http.StatusBadRequest:
		return newError(models.CategoryInvalidCredentials, MsgInvalidCredentials, status)
	}

	switch detail := payload["detail"].(type) {
	case string:
		if e := classifyText(detail, status); e != nil {
			return e
		}
		return passThrough(detail, status, ctx)
	case []any:
		if msgs := validationMessages(detail); len(msgs) > 0 {
			e := newError(models.CategoryValidationError, strings.Join(msgs, ", "), status)
			e.Details = msgs
			return e
		}
	}

	for _, key := range []string{"error", "message"} {
		if text, ok := payload[key].(string); ok && strings.TrimSpace(text) != "" {
			return passThrough(text, status, ctx)
		}
	}

	if ctx == LoginContext {
		return newError(models.CategoryServerError, MsgLoginFailed, status)
	}
	return newError(models.CategoryServerError, MsgAnalysisFailed, status)
}

// Transport classifies a request that produced no response.
func Transport(err error) *Error {
	e := newError(models.CategoryNetworkError, MsgNetworkError, 0)
	e.cause = err
	if errors.Is(err, context.DeadlineExceeded) {
		e.sentinel = shared.ErrTimeout
	}
	return e
}

// LoginRequired is returned when a protected action starts without a session.
func LoginRequired() *Error {
	return newError(models.CategoryLoginRequired, MsgLoginRequired, 0)
}

// SessionExpired is the error surfaced after a 401 on an authenticated request.
func SessionExpired() *Error {
	return newError(models.CategorySessionExpired, MsgSessionExpired, http.StatusUnauthorized)
}

func classifyText(detail string, status int) *Error {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "not found"), strings.Contains(lower, "does not exist"):
		return newError(models.CategoryAccountNotFound, MsgAccountNotFound, status)
	case strings.Contains(lower, "incorrect"), strings.Contains(lower, "invalid password"):
		return newError(models.CategoryIncorrectCredentials, MsgIncorrectCredentials, status)
	}
	return nil
}

func passThrough(text string, status int, ctx Context) *Error {
	text = strings.TrimSpace(text)
	switch {
	case text == "" && ctx == LoginContext:
		text = MsgLoginFailed
	case text == "":
		text = MsgAnalysisFailed
	case ctx == AuthenticatedContext:
		text = analysisPrefix + text
	}
	return newError(models.CategoryServerError, text, status)
}

func validationMessages(entries []any) []string {
	var msgs []string
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if msg, ok := obj["msg"].(string); ok && msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func newError(category models.ErrorCategory, message string, status int) *Error {
	return &Error{Category: category, Message: message, Status: status, sentinel: sentinelFor(category)}
}

func sentinelFor(category models.ErrorCategory) error {
	switch category {
	case models.CategorySessionExpired:
		return shared.ErrTokenExpired
	case models.CategoryLoginRequired:
		return shared.ErrNotAuthenticated
	case models.CategoryNetworkError:
		return shared.ErrServiceUnavailable
	case models.CategoryServerError, models.CategoryValidationError:
		return shared.ErrAPIRequest
	default:
		return shared.ErrAuthFailed
	}
}
