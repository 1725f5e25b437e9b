package models

import "testing"

func TestSessionValid(t *testing.T) {
	tc := []struct {
		name    string
		session Session
		want    bool
	}{
		{name: "token present", session: Session{Token: "abc", Identity: "a@b.com"}, want: true},
		{name: "empty token", session: Session{Identity: "a@b.com"}, want: false},
		{name: "whitespace token", session: Session{Token: "  "}, want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUploadState(t *testing.T) {
	if StateIdle.Analyzing() {
		t.Error("idle should not be analyzing")
	}
	if !StateReading.Analyzing() || !StateSubmitting.Analyzing() {
		t.Error("reading and submitting should be analyzing")
	}
	if StateSubmitting.String() != "submitting" {
		t.Errorf("unexpected state name %q", StateSubmitting.String())
	}
}

func TestErrorCategoryIsAuth(t *testing.T) {
	auth := []ErrorCategory{
		CategoryAccountNotFound, CategoryIncorrectCredentials, CategoryInvalidCredentials,
		CategorySessionExpired, CategoryLoginRequired,
	}
	for _, c := range auth {
		if !c.IsAuth() {
			t.Errorf("%v should be an auth category", c)
		}
	}

	for _, c := range []ErrorCategory{CategoryNetworkError, CategoryServerError, CategoryValidationError} {
		if c.IsAuth() {
			t.Errorf("%v should not be an auth category", c)
		}
	}
}
