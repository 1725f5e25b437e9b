package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/shared"
)

func TestClassify(t *testing.T) {
	tt := []struct {
		name     string
		status   int
		body     string
		ctx      Context
		category models.ErrorCategory
		message  string
	}{
		{
			name: "404 in login context", status: http.StatusNotFound, body: `{}`, ctx: LoginContext,
			category: models.CategoryAccountNotFound, message: MsgAccountNotFound,
		},
		{
			name: "404 wins over body", status: http.StatusNotFound, body: `{"detail":"incorrect password"}`, ctx: AuthenticatedContext,
			category: models.CategoryAccountNotFound, message: MsgAccountNotFound,
		},
		{
			name: "401 in login context", status: http.StatusUnauthorized, body: `{"detail":"Incorrect username or password"}`, ctx: LoginContext,
			category: models.CategoryIncorrectCredentials, message: MsgIncorrectCredentials,
		},
		{
			name: "401 in authenticated context", status: http.StatusUnauthorized, body: `{"detail":"Could not validate credentials"}`, ctx: AuthenticatedContext,
			category: models.CategorySessionExpired, message: MsgSessionExpired,
		},
		{
			name: "400 in any context", status: http.StatusBadRequest, body: ``, ctx: AuthenticatedContext,
			category: models.CategoryInvalidCredentials, message: MsgInvalidCredentials,
		},
		{
			name: "detail not found", status: http.StatusForbidden, body: `{"detail":"user not found"}`, ctx: LoginContext,
			category: models.CategoryAccountNotFound, message: MsgAccountNotFound,
		},
		{
			name: "detail does not exist mixed case", status: http.StatusForbidden, body: `{"detail":"Account Does Not Exist"}`, ctx: LoginContext,
			category: models.CategoryAccountNotFound, message: MsgAccountNotFound,
		},
		{
			name: "detail incorrect", status: http.StatusForbidden, body: `{"detail":"Incorrect credentials supplied"}`, ctx: LoginContext,
			category: models.CategoryIncorrectCredentials, message: MsgIncorrectCredentials,
		},
		{
			name: "detail invalid password", status: http.StatusUnprocessableEntity, body: `{"detail":"Invalid password"}`, ctx: LoginContext,
			category: models.CategoryIncorrectCredentials, message: MsgIncorrectCredentials,
		},
		{
			name: "detail passthrough in login context", status: http.StatusForbidden, body: `{"detail":"Account locked"}`, ctx: LoginContext,
			category: models.CategoryServerError, message: "Account locked",
		},
		{
			name: "detail passthrough in authenticated context", status: http.StatusInternalServerError, body: `{"detail":"model offline"}`, ctx: AuthenticatedContext,
			category: models.CategoryServerError, message: "Analysis failed: model offline",
		},
		{
			name: "validation array", status: http.StatusUnprocessableEntity, body: `{"detail":[{"msg":"a"},{"msg":"b"}]}`, ctx: LoginContext,
			category: models.CategoryValidationError, message: "a, b",
		},
		{
			name: "validation array skips entries without msg", status: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":["body"]},{"msg":"field required"}]}`, ctx: LoginContext,
			category: models.CategoryValidationError, message: "field required",
		},
		{
			name: "analysis error key", status: http.StatusInternalServerError, body: `{"success":false,"error":"Invalid image file"}`, ctx: AuthenticatedContext,
			category: models.CategoryServerError, message: "Analysis failed: Invalid image file",
		},
		{
			name: "message fallback", status: http.StatusServiceUnavailable, body: `{"message":"maintenance window"}`, ctx: LoginContext,
			category: models.CategoryServerError, message: "maintenance window",
		},
		{
			name: "generic login failure", status: http.StatusInternalServerError, body: `{}`, ctx: LoginContext,
			category: models.CategoryServerError, message: MsgLoginFailed,
		},
		{
			name: "generic analysis failure on non-JSON body", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, ctx: AuthenticatedContext,
			category: models.CategoryServerError, message: MsgAnalysisFailed,
		},
		{
			name: "empty detail string falls back", status: http.StatusInternalServerError, body: `{"detail":""}`, ctx: LoginContext,
			category: models.CategoryServerError, message: MsgLoginFailed,
		},
		{
			name: "empty validation array falls back to message", status: http.StatusUnprocessableEntity, body: `{"detail":[],"message":"bad form"}`, ctx: LoginContext,
			category: models.CategoryServerError, message: "bad form",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.status, []byte(tc.body), tc.ctx)
			if got == nil {
				t.Fatal("Classify() returned nil")
			}
			if got.Category != tc.category {
				t.Errorf("category = %v, want %v", got.Category, tc.category)
			}
			if got.Message != tc.message {
				t.Errorf("message = %q, want %q", got.Message, tc.message)
			}
			if got.Status != tc.status {
				t.Errorf("status = %d, want %d", got.Status, tc.status)
			}
		})
	}
}

func TestClassifyNeverEmpty(t *testing.T) {
	bodies := []string{"", "null", "[]", `"text"`, `{"detail":null}`, `{"detail":42}`, `{"error":""}`, `{"message":"   "}`}
	statuses := []int{0, 200, 403, 418, 500, 503}

	for _, body := range bodies {
		for _, status := range statuses {
			for _, ctx := range []Context{LoginContext, AuthenticatedContext} {
				got := Classify(status, []byte(body), ctx)
				if got == nil || got.Message == "" {
					t.Errorf("Classify(%d, %q, %v) produced an empty message", status, body, ctx)
				}
			}
		}
	}
}

func TestClassifyValidationDetails(t *testing.T) {
	got := Classify(http.StatusUnprocessableEntity, []byte(`{"detail":[{"msg":"a"},{"msg":"b"}]}`), AuthenticatedContext)
	if len(got.Details) != 2 || got.Details[0] != "a" || got.Details[1] != "b" {
		t.Errorf("unexpected details %v", got.Details)
	}
}

func TestSentinels(t *testing.T) {
	t.Run("Session Expired", func(t *testing.T) {
		err := error(Classify(http.StatusUnauthorized, nil, AuthenticatedContext))
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Incorrect Credentials", func(t *testing.T) {
		err := error(Classify(http.StatusUnauthorized, nil, LoginContext))
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Login Required", func(t *testing.T) {
		if !errors.Is(LoginRequired(), shared.ErrNotAuthenticated) {
			t.Error("expected ErrNotAuthenticated")
		}
	})

	t.Run("Transport", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Transport(cause)

		if err.Category != models.CategoryNetworkError || err.Message != MsgNetworkError {
			t.Errorf("unexpected transport error %+v", err)
		}
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Error("expected ErrServiceUnavailable")
		}
		if !errors.Is(err, cause) {
			t.Error("expected the cause to be preserved")
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		err := Transport(fmt.Errorf("post: %w", context.DeadlineExceeded))
		if err.Category != models.CategoryNetworkError {
			t.Errorf("expected network error, got %v", err.Category)
		}
		if !errors.Is(err, shared.ErrTimeout) {
			t.Error("expected ErrTimeout")
		}
	})

	t.Run("As", func(t *testing.T) {
		wrapped := fmt.Errorf("analyze: %w", SessionExpired())
		ce, ok := As(wrapped)
		if !ok || ce.Category != models.CategorySessionExpired {
			t.Errorf("As() = %v, %v", ce, ok)
		}
	})
}
