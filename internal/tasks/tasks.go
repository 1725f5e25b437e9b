package tasks

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/services"
)

// ErrSubmissionInFlight is returned when a submission starts while another is still running.
var ErrSubmissionInFlight = errors.New("a submission is already in progress")

// ErrSubmissionDiscarded is returned when a submission's outcome was dropped because its view
// went away or the controller was reset.
var ErrSubmissionDiscarded = errors.New("submission discarded")

// AnalysisClient uploads images to the analysis service.
type AnalysisClient interface {
	Upload(ctx context.Context, token string, upload models.UploadRequest) (*services.APIResponse, error)
}

// Authenticator exchanges credentials for an access token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*oauth2.Token, error)
}

// SessionStore is the persisted session as seen by tasks. [session.Manager] implements it.
type SessionStore interface {
	Acquire(identity, token string) error
	RequireSession() (models.Session, error)
	Clear() error
}

// Navigator moves the presentation layer to the login view.
type Navigator interface {
	RedirectToLogin()
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(message string)
}

func discardLogger(logger *log.Logger) *log.Logger {
	if logger != nil {
		return logger
	}
	return log.New(io.Discard)
}
