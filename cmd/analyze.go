package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/desertthunder/birdseye/internal/formatter"
	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/shared"
	"github.com/desertthunder/birdseye/internal/tasks"
)

// Analyze uploads the image at PATH and prints the wet litter report.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: image path is required", shared.ErrMissingArgument)
	}

	selected := 0
	for _, name := range []string{"json", "yaml", "csv", "markdown"} {
		if cmd.Bool(name) {
			selected++
		}
	}
	if selected > 1 {
		return fmt.Errorf("%w: choose one of --json, --yaml, --csv or --markdown", shared.ErrInvalidFlag)
	}

	result, err := r.submit(ctx, path)
	if err != nil {
		return err
	}

	report := formatter.NewReport(filepath.Base(path), result)
	output := cmd.String("output")
	image := ""

	switch {
	case cmd.Bool("markdown"):
		res, err := formatter.WriteMarkdownExport(report, result.ProcessedImage, output)
		if err != nil {
			return err
		}
		image = res.Image
		r.writePlain("✓ Report written to %s\n", res.Directory)
		for _, f := range res.Files {
			r.writePlain("  %s\n", f)
		}
	case cmd.Bool("json") && output == "":
		if err := r.writeJSON(report, true); err != nil {
			return err
		}
	case cmd.Bool("yaml") && output == "":
		if err := r.writeYAML(report); err != nil {
			return err
		}
	case cmd.Bool("json"):
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if err := r.emit(append(data, '\n'), output); err != nil {
			return err
		}
	case cmd.Bool("yaml"):
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		if err := r.emit(data, output); err != nil {
			return err
		}
	case cmd.Bool("csv"):
		data, err := formatter.ExportToCSV(report)
		if err != nil {
			return err
		}
		if err := r.emit(data, output); err != nil {
			return err
		}
	default:
		data, err := formatter.ExportToText(report)
		if err != nil {
			return err
		}
		if err := r.emit(data, output); err != nil {
			return err
		}
	}

	if cmd.Bool("open") {
		return r.openProcessed(result, path, image)
	}
	return nil
}

// submit runs one upload, logging progress as it arrives.
func (r *Runner) submit(ctx context.Context, path string) (*models.AnalysisResult, error) {
	progress := make(chan tasks.ProgressUpdate, 8)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	result, err := r.uploads.SubmitFile(ctx, path, progress)
	close(progress)
	<-done

	return result, err
}

// emit writes data to file, or to the runner's output when file is empty.
func (r *Runner) emit(data []byte, file string) error {
	if file == "" {
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return r.writePlain("✓ Report saved to %s\n", file)
}

// openProcessed shows the processed image, saving it to a temp file unless saved already.
func (r *Runner) openProcessed(result *models.AnalysisResult, source, saved string) error {
	if result.ProcessedImage == "" {
		r.logger.Warn("service returned no processed image")
		return nil
	}

	if saved == "" {
		stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		path, err := formatter.SaveImage(result.ProcessedImage, filepath.Join(os.TempDir(), "birdseye-"+stem+"-processed"))
		if err != nil {
			return err
		}
		saved = path
	}

	r.logger.Info("opening processed image", "path", saved)
	return shared.OpenInViewer(saved)
}
