package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/birdseye/internal/classify"
	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/services"
	"github.com/desertthunder/birdseye/internal/shared"
)

// LoginTask signs the user in and out.
type LoginTask struct {
	api      Authenticator
	sessions SessionStore
	uploads  *UploadController
	logger   *log.Logger
	timeout  time.Duration
}

// NewLoginTask creates a [LoginTask]. uploads may be nil; when set, Logout also resets it.
func NewLoginTask(api Authenticator, sessions SessionStore, uploads *UploadController, logger *log.Logger, timeout time.Duration) *LoginTask {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LoginTask{
		api:      api,
		sessions: sessions,
		uploads:  uploads,
		logger:   discardLogger(logger),
		timeout:  timeout,
	}
}

// Login exchanges identity and password for a token and persists the session.
//
// On failure the stored session is left as it was and a [*classify.Error] in the login
// context is returned.
func (l *LoginTask) Login(ctx context.Context, identity, password string, progress chan<- ProgressUpdate) (models.Session, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return models.Session{}, fmt.Errorf("%w: username and password are required", shared.ErrMissingArgument)
	}

	sendProgress(progress, authenticatingUpdate(identity))

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	token, err := l.api.Login(ctx, identity, password)
	if err != nil {
		ce := loginError(err)
		l.logger.Warn("login failed", "identity", identity, "category", ce.Category, "status", ce.Status)
		sendProgress(progress, failedUpdate(ce))
		return models.Session{}, ce
	}

	if err := l.sessions.Acquire(identity, token.AccessToken); err != nil {
		return models.Session{}, err
	}

	l.logger.Info("signed in", "identity", identity)
	sendProgress(progress, ProgressUpdate{Phase: Complete, Step: 1, Total: 1, Message: "✓ Signed in as " + identity})
	return models.Session{Token: token.AccessToken, Identity: identity}, nil
}

// Logout clears the persisted session and the upload snapshot.
func (l *LoginTask) Logout() error {
	if l.uploads != nil {
		l.uploads.Reset()
	}
	if err := l.sessions.Clear(); err != nil {
		return err
	}
	l.logger.Info("signed out")
	return nil
}

func loginError(err error) *classify.Error {
	var respErr *services.ResponseError
	if errors.As(err, &respErr) {
		return classify.Classify(respErr.Response.StatusCode, respErr.Response.Body, classify.LoginContext)
	}
	if errors.Is(err, shared.ErrServiceUnavailable) {
		return classify.Transport(err)
	}
	return classify.ClassifyPayload(0, nil, classify.LoginContext)
}
