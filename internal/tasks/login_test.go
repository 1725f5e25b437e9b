package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/birdseye/internal/classify"
	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/services"
	"github.com/desertthunder/birdseye/internal/shared"
)

type fakeAuth struct {
	token *oauth2.Token
	err   error
}

func (f fakeAuth) Login(ctx context.Context, username, password string) (*oauth2.Token, error) {
	return f.token, f.err
}

func rejected(status int, body string) error {
	return &services.ResponseError{Response: &services.APIResponse{StatusCode: status, Body: []byte(body)}}
}

func TestLoginTask(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		sessions := newSessions(t)
		task := NewLoginTask(fakeAuth{token: &oauth2.Token{AccessToken: "tok"}}, sessions, nil, nil, 0)

		sess, err := task.Login(context.Background(), " a@b.com ", "secret", nil)
		if err != nil {
			t.Fatalf("Login() failed: %v", err)
		}
		if sess.Identity != "a@b.com" || sess.Token != "tok" {
			t.Errorf("unexpected session %+v", sess)
		}

		stored, _ := sessions.Current()
		if stored != sess {
			t.Errorf("expected %+v to be persisted, got %+v", sess, stored)
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		sessions := newSessions(t)
		task := NewLoginTask(fakeAuth{err: rejected(http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`)}, sessions, nil, nil, 0)

		_, err := task.Login(context.Background(), "a@b.com", "wrong", nil)

		ce, ok := classify.As(err)
		if !ok {
			t.Fatalf("expected classified error, got %v", err)
		}
		if ce.Message != "Incorrect password. Please try again." {
			t.Errorf("unexpected message %q", ce.Message)
		}
		if sessions.IsAuthenticated() {
			t.Error("session must stay anonymous")
		}
	})

	t.Run("Failed Login Keeps Existing Session", func(t *testing.T) {
		sessions := signedIn(t)
		task := NewLoginTask(fakeAuth{err: rejected(http.StatusNotFound, `{}`)}, sessions, nil, nil, 0)

		_, err := task.Login(context.Background(), "other@b.com", "x", nil)
		if ce, ok := classify.As(err); !ok || ce.Category != models.CategoryAccountNotFound {
			t.Errorf("expected AccountNotFound, got %v", err)
		}

		if identity, _ := sessions.Identity(); identity != "a@b.com" {
			t.Errorf("existing session should be untouched, got %q", identity)
		}
	})

	t.Run("Validation Errors", func(t *testing.T) {
		body := `{"detail":[{"msg":"field required"},{"msg":"value is not a valid email address"}]}`
		task := NewLoginTask(fakeAuth{err: rejected(http.StatusUnprocessableEntity, body)}, newSessions(t), nil, nil, 0)

		_, err := task.Login(context.Background(), "a", "b", nil)
		ce, ok := classify.As(err)
		if !ok || ce.Category != models.CategoryValidationError {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if ce.Message != "field required, value is not a valid email address" {
			t.Errorf("unexpected message %q", ce.Message)
		}
	})

	t.Run("Network Error", func(t *testing.T) {
		task := NewLoginTask(fakeAuth{err: fmt.Errorf("%w: dial tcp", shared.ErrServiceUnavailable)}, newSessions(t), nil, nil, 0)

		_, err := task.Login(context.Background(), "a", "b", nil)
		if ce, ok := classify.As(err); !ok || ce.Category != models.CategoryNetworkError {
			t.Errorf("expected NetworkError, got %v", err)
		}
	})

	t.Run("Malformed Reply", func(t *testing.T) {
		task := NewLoginTask(fakeAuth{err: fmt.Errorf("%w: missing access_token", shared.ErrInvalidResponse)}, newSessions(t), nil, nil, 0)

		_, err := task.Login(context.Background(), "a", "b", nil)
		if ce, ok := classify.As(err); !ok || ce.Message != classify.MsgLoginFailed {
			t.Errorf("expected generic login failure, got %v", err)
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		task := NewLoginTask(fakeAuth{}, newSessions(t), nil, nil, 0)

		for _, tc := range [][2]string{{"", "pw"}, {"a@b.com", ""}, {"   ", "pw"}} {
			if _, err := task.Login(context.Background(), tc[0], tc[1], nil); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("Login(%q, %q): expected ErrMissingArgument, got %v", tc[0], tc[1], err)
			}
		}
	})

	t.Run("Progress", func(t *testing.T) {
		task := NewLoginTask(fakeAuth{token: &oauth2.Token{AccessToken: "tok"}}, newSessions(t), nil, nil, 0)
		progress := make(chan ProgressUpdate, 4)

		_, _ = task.Login(context.Background(), "a@b.com", "pw", progress)
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) != 2 || phases[0] != Authenticating || phases[1] != Complete {
			t.Errorf("unexpected phases %v", phases)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		sessions := signedIn(t)
		uploads := newController(&fakeClient{resp: response(http.StatusOK, `{"wet_percentage":22}`)}, sessions, &recorder{})
		if _, err := uploads.Submit(context.Background(), pngUpload(t), nil); err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}

		task := NewLoginTask(fakeAuth{}, sessions, uploads, nil, 0)
		if err := task.Logout(); err != nil {
			t.Fatalf("Logout() failed: %v", err)
		}

		if sessions.IsAuthenticated() {
			t.Error("expected anonymous after logout")
		}
		if uploads.Snapshot().Result != nil {
			t.Error("expected snapshot to be reset")
		}
	})
}
