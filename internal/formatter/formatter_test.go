package formatter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/severity"
	"github.com/desertthunder/birdseye/internal/shared"
	th "github.com/desertthunder/birdseye/internal/testing"
)

func criticalReport() Report {
	return NewReport("coop.jpg", &models.AnalysisResult{
		WetPercentage:  40.2,
		ProcessedImage: "data:image/jpeg;base64,AAAA",
		ReceivedAt:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	})
}

func TestNewReport(t *testing.T) {
	t.Run("Critical", func(t *testing.T) {
		r := criticalReport()

		if r.Display != "40.2%" || r.Severity != "Critical" {
			t.Errorf("unexpected display/severity %s/%s", r.Display, r.Severity)
		}
		if !r.Intervention || r.Recommendation != severity.InterventionTitle || r.Detail != severity.InterventionDetail {
			t.Errorf("unexpected recommendation %+v", r)
		}
		if !r.HasImage {
			t.Error("expected HasImage")
		}
	})

	t.Run("Safe Band Still Recommends Above Threshold", func(t *testing.T) {
		r := NewReport("a.png", &models.AnalysisResult{WetPercentage: 20})

		if r.Severity != "Safe" || !r.Intervention {
			t.Errorf("expected Safe with intervention, got %s/%v", r.Severity, r.Intervention)
		}
	})

	t.Run("Below Threshold", func(t *testing.T) {
		r := NewReport("a.png", &models.AnalysisResult{WetPercentage: 15})

		if r.Intervention || r.Recommendation != severity.NoInterventionText {
			t.Errorf("expected no intervention at 15%%, got %+v", r)
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(criticalReport(), NewReport("b.png", &models.AnalysisResult{WetPercentage: 3}))
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and two rows, got %d lines", len(lines))
		}
		if lines[0] != "File,WetPercentage,Severity,Intervention,Recommendation,ReceivedAt" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if lines[1] != "coop.jpg,40.2,Critical,true,Increase ventilation in Zone 1,2026-03-01T09:30:00Z" {
			t.Errorf("unexpected row %q", lines[1])
		}
		if !strings.HasPrefix(lines[2], "b.png,3.0,Safe,false,") {
			t.Errorf("unexpected row %q", lines[2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(criticalReport(), "processed.jpg")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Litter Analysis: coop.jpg",
			"![Processed image](processed.jpg)",
			"**Wet litter**: 40.2%",
			"**Severity**: Critical",
			"- **Increase ventilation in Zone 1**: High moisture is detected in Zone 1.",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown Without Image", func(t *testing.T) {
		data, _ := ExportToMarkdown(NewReport("a.png", &models.AnalysisResult{WetPercentage: 2, Message: "No litter detected in image"}), "")

		output := string(data)
		if strings.Contains(output, "![") {
			t.Error("expected no image link")
		}
		if !strings.Contains(output, severity.NoInterventionText) || !strings.Contains(output, "**Note**: No litter detected in image") {
			t.Errorf("unexpected Markdown:\n%s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(criticalReport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Wet litter: 40.2%") || !strings.Contains(output, "Intervention: Increase ventilation in Zone 1") {
			t.Errorf("unexpected text:\n%s", output)
		}
	})
}

func TestDataURL(t *testing.T) {
	t.Run("Base64", func(t *testing.T) {
		data, mediaType, err := DecodeDataURL("data:image/png;base64,aGVsbG8=")
		if err != nil {
			t.Fatalf("DecodeDataURL failed: %v", err)
		}
		if string(data) != "hello" || mediaType != "image/png" {
			t.Errorf("got %q (%s)", data, mediaType)
		}
	})

	t.Run("Percent Encoded", func(t *testing.T) {
		data, mediaType, err := DecodeDataURL("data:,hello%20world")
		if err != nil || string(data) != "hello world" || mediaType != "text/plain" {
			t.Errorf("got %q (%s), %v", data, mediaType, err)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, in := range []string{"", "http://example.com/a.jpg", "data:image/png;base64", "data:image/png;base64,!!!"} {
			if _, _, err := DecodeDataURL(in); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("DecodeDataURL(%q): expected ErrInvalidInput, got %v", in, err)
			}
		}
	})
}

func TestSaveImage(t *testing.T) {
	t.Run("Adds Extension", func(t *testing.T) {
		dataURL := th.JPEGDataURL(t, 4, 4)
		path, err := SaveImage(dataURL, filepath.Join(t.TempDir(), "out", "processed"))
		if err != nil {
			t.Fatalf("SaveImage failed: %v", err)
		}
		if filepath.Ext(path) != ".jpg" {
			t.Errorf("expected .jpg extension, got %s", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("Keeps Extension", func(t *testing.T) {
		path, err := SaveImage("data:image/png;base64,aGVsbG8=", filepath.Join(t.TempDir(), "x.png"))
		if err != nil || !strings.HasSuffix(path, "x.png") {
			t.Errorf("SaveImage = %s, %v", path, err)
		}
		if th.MustReadFile(t, path) != "hello" {
			t.Error("unexpected file contents")
		}
	})

	t.Run("Rejects Non-Image", func(t *testing.T) {
		if _, err := SaveImage("data:text/plain;base64,aGVsbG8=", filepath.Join(t.TempDir(), "x")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestWriteMarkdownExport(t *testing.T) {
	t.Run("With Image", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "report")

		result, err := WriteMarkdownExport(criticalReport(), th.JPEGDataURL(t, 4, 4), dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		if len(result.Files) != 2 {
			t.Errorf("expected image and README, got %v", result.Files)
		}
		readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
		if !strings.Contains(readme, "![Processed image](processed.jpg)") {
			t.Errorf("README should link the image, got:\n%s", readme)
		}
	})

	t.Run("Default Directory", func(t *testing.T) {
		wd, _ := os.Getwd()
		tmp := t.TempDir()
		if err := os.Chdir(tmp); err != nil {
			t.Fatalf("chdir: %v", err)
		}
		defer os.Chdir(wd)

		result, err := WriteMarkdownExport(criticalReport(), "", "")
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if result.Directory != "coop_analysis" || result.Image != "" {
			t.Errorf("unexpected result %+v", result)
		}
		th.AssertFileExists(t, filepath.Join(tmp, "coop_analysis", "README.md"))
	})
}
