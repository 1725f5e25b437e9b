package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/desertthunder/birdseye/internal/repositories"
	"github.com/desertthunder/birdseye/internal/services"
	"github.com/desertthunder/birdseye/internal/session"
	"github.com/desertthunder/birdseye/internal/shared"
	"github.com/desertthunder/birdseye/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	api      *services.APIService
	sessions *session.Manager
	uploads  *tasks.UploadController
	login    *tasks.LoginTask
	db       *sql.DB
	logger   *log.Logger
	output   io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// When API and Sessions are both set the Runner is wired immediately and [Runner.Bootstrap]
// leaves it alone; otherwise Bootstrap builds them from the config file.
type RunnerOpts struct {
	Config   *shared.Config
	API      *services.APIService
	Sessions *session.Manager
	Logger   *log.Logger
	Output   io.Writer
}

var _ tasks.Navigator = (*Runner)(nil)

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
	if opts.API != nil && opts.Sessions != nil {
		r.wire(opts.API, opts.Sessions)
	}
	return r
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "birdseye",
		Usage:   "Measure wet litter in poultry house photos",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("BIRDSEYE_CONFIG"),
			},
		},
		Before:   r.Bootstrap,
		Writer:   r.output,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, analyzeCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Bootstrap loads the config file, opens the client state database and wires the services.
// It runs before every command.
func (r *Runner) Bootstrap(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.sessions != nil {
		return ctx, nil
	}

	config := r.loadConfig(cmd.String("config"))
	config.ApplyEnv()
	r.config = config
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))

	db, err := r.openDatabase(config.Database)
	if err != nil {
		return ctx, err
	}
	r.db = db

	r.wire(
		services.NewAPIService(config.API, nil),
		session.NewManager(repositories.NewClientStateRepository(db)),
	)
	return ctx, nil
}

// Close releases the database opened by [Runner.Bootstrap]. It is safe to call more than once.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// RedirectToLogin tells the operator how to sign in again.
func (r *Runner) RedirectToLogin() {
	r.writePlain("→ Run `birdseye auth login` to sign in.\n")
}

func (r *Runner) wire(api *services.APIService, sessions *session.Manager) {
	r.api = api
	r.sessions = sessions
	r.uploads = tasks.NewUploadController(api, sessions, r.logger, tasks.UploadOptions{
		Timeout:   r.config.API.Timeout(),
		MaxBytes:  r.config.API.MaxUploadBytes(),
		Navigator: r,
	})
	r.login = tasks.NewLoginTask(api, sessions, r.uploads, r.logger, r.config.API.Timeout())
}

func (r *Runner) loadConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig()
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return shared.DefaultConfig()
	}
	return config
}

func (r *Runner) openDatabase(cfg shared.DatabaseConfig) (*sql.DB, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeYAML(data any) error {
	output, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
