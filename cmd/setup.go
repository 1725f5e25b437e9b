package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/birdseye/internal/shared"
)

// Setup creates config.toml from the embedded template when missing and reports where the
// client state database lives. Migrations have already run by the time the action starts.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file already exists", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	dbPath, err := shared.ExpandPath(r.config.Database.Path)
	if err != nil {
		return err
	}

	if cmd.Bool("reset") {
		if r.db == nil {
			return fmt.Errorf("%w: database not opened", shared.ErrServiceUnavailable)
		}
		r.logger.Info("rolling back client state migration")
		if err := shared.RollbackMigration(r.db); err != nil {
			return err
		}
		if err := shared.RunMigrations(r.db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.writePlain("✓ Client state reset\n")
	}

	r.logger.Infof("setup complete for database: %v", dbPath)

	r.writePlain("✓ Database ready at %s\n", dbPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set api.base_url in %s if the service is not at %s\n", configPath, r.config.API.BaseURL)
	r.writePlain("2. Run 'birdseye auth login -u you@example.com' to sign in\n")
	return nil
}
