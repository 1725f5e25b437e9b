package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/birdseye/internal/tasks"
)

type authStatus struct {
	Identity      string     `json:"identity"`
	Authenticated bool       `json:"authenticated"`
	SignedInAt    *time.Time `json:"signed_in_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	API           string     `json:"api"`
	Health        string     `json:"health"`
	Reachable     bool       `json:"reachable"`
}

// AuthLogin exchanges a username and password for a token and stores the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	progress := make(chan tasks.ProgressUpdate, 4)
	sess, err := r.login.Login(ctx, cmd.String("username"), cmd.String("password"), progress)
	close(progress)

	for update := range progress {
		r.logger.Debug(update.Message, "phase", update.Phase)
	}
	if err != nil {
		return err
	}

	return r.writePlain("✓ Signed in as %s\n", sess.Identity)
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.login.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the stored session and whether the service answers.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.sessions.Current()
	if err != nil {
		return err
	}

	status := authStatus{
		Identity:      sess.Identity,
		Authenticated: sess.Valid(),
		API:           r.api.BaseURL(),
	}

	if at, ok, err := r.sessions.SignedInAt(); err != nil {
		r.logger.Warn("failed to read sign-in time", "error", err)
	} else if ok {
		status.SignedInAt = &at
	}

	if exp, ok, err := r.sessions.ExpiresAt(); err != nil {
		r.logger.Warn("failed to read token expiry", "error", err)
	} else if ok {
		status.ExpiresAt = &exp
	}

	if message, err := r.api.Health(ctx); err != nil {
		r.logger.Warn("health check failed", "error", err)
		status.Health = err.Error()
	} else {
		status.Health = message
		status.Reachable = true
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Session")
	if status.Authenticated {
		r.writePlain("Authentication: ✓ Signed in as %s\n", status.Identity)
	} else {
		r.writePlain("Authentication: ✗ Not signed in\n")
	}
	if status.SignedInAt != nil {
		r.writePlain("Signed in: %s\n", status.SignedInAt.Local().Format(time.RFC1123))
	}
	if status.ExpiresAt != nil {
		r.writePlain("Token expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}

	r.writePlainln("Service: %s", status.API)
	if status.Reachable {
		return r.writePlain("✓ %s\n", status.Health)
	}
	return r.writePlain("✗ Unreachable: %s\n", status.Health)
}
