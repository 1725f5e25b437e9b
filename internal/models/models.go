// package models defines the data model for the birdseye client
package models

import (
	"strings"
	"time"
)

// Session is the persisted authentication state.
type Session struct {
	Token    string
	Identity string
}

// Valid reports whether the session carries a non-empty token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// UploadRequest is a single image submission.
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Preview is the locally decoded image shown while the service analyzes it.
type Preview struct {
	DataURL string // data:<mime>;base64,<payload>
	Format  string // decoder name (jpeg, png, gif, webp)
	Width   int
	Height  int
}

// AnalysisResult is a successful analysis returned by the service.
type AnalysisResult struct {
	ProcessedImage string  // data URL with wet areas highlighted; empty when no litter was found
	WetPercentage  float64 // 0-100
	Message        string  // optional server note, e.g. "No litter detected in image"
	ReceivedAt     time.Time
}

// UploadState is the upload controller's state machine.
type UploadState int

const (
	StateIdle UploadState = iota
	StateReading
	StateSubmitting
)

func (s UploadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateSubmitting:
		return "submitting"
	default:
		return ""
	}
}

// Analyzing reports whether a submission is in flight.
func (s UploadState) Analyzing() bool {
	return s == StateReading || s == StateSubmitting
}

// Severity is the band a wet-litter percentage falls into.
type Severity int

const (
	SeveritySafe Severity = iota
	SeverityModerate
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeveritySafe:
		return "Safe"
	case SeverityModerate:
		return "Moderate"
	case SeverityCritical:
		return "Critical"
	default:
		return ""
	}
}

// ErrorCategory classifies a failed request for display.
type ErrorCategory int

const (
	CategoryServerError ErrorCategory = iota
	CategoryAccountNotFound
	CategoryIncorrectCredentials
	CategoryInvalidCredentials
	CategorySessionExpired
	CategoryNetworkError
	CategoryValidationError
	CategoryLoginRequired
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryServerError:
		return "server_error"
	case CategoryAccountNotFound:
		return "account_not_found"
	case CategoryIncorrectCredentials:
		return "incorrect_credentials"
	case CategoryInvalidCredentials:
		return "invalid_credentials"
	case CategorySessionExpired:
		return "session_expired"
	case CategoryNetworkError:
		return "network_error"
	case CategoryValidationError:
		return "validation_error"
	case CategoryLoginRequired:
		return "login_required"
	default:
		return ""
	}
}

// IsAuth reports whether the category belongs to the authentication family.
func (c ErrorCategory) IsAuth() bool {
	switch c {
	case CategoryAccountNotFound, CategoryIncorrectCredentials, CategoryInvalidCredentials,
		CategorySessionExpired, CategoryLoginRequired:
		return true
	}
	return false
}
