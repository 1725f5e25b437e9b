package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/birdseye/internal/shared"
	"github.com/desertthunder/birdseye/internal/tasks"
	"github.com/desertthunder/birdseye/internal/ui"
)

// TUI launches the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.sessions == nil {
		return fmt.Errorf("%w: session store not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	bridge := &ui.Bridge{}
	uploads := tasks.NewUploadController(r.api, r.sessions, fileLogger, tasks.UploadOptions{
		Timeout:   r.config.API.Timeout(),
		MaxBytes:  r.config.API.MaxUploadBytes(),
		Navigator: bridge,
		Notifier:  bridge,
	})
	login := tasks.NewLoginTask(r.api, r.sessions, uploads, fileLogger, r.config.API.Timeout())

	model := ui.NewModel(ctx, r.sessions, login, uploads, fileLogger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
