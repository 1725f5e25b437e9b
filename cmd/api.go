package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/birdseye/internal/services"
)

// APIGet makes a direct GET request to the analysis service
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	compact := cmd.Bool("json")

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return &services.ResponseError{Response: resp}
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, !compact)
	}

	if _, err := r.output.Write(resp.Body); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return r.writePlain("\n")
}
