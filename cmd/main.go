package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/birdseye/internal/classify"
	"github.com/desertthunder/birdseye/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	if err := runner.app().Run(context.Background(), os.Args); err != nil {
		if ce, ok := classify.As(err); ok {
			logger.Error(ce.Message, "category", ce.Category, "status", ce.Status)
			runner.Close()
			os.Exit(1)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
