// package formatter renders analysis results as reports (plain text, Markdown, CSV) and writes
// processed images to disk
package formatter

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/severity"
	"github.com/desertthunder/birdseye/internal/shared"
)

// Report is an analysis result with its derived severity and recommendation.
type Report struct {
	File           string    `json:"file" yaml:"file"`
	WetPercentage  float64   `json:"wet_percentage" yaml:"wet_percentage"`
	Display        string    `json:"display" yaml:"display"`
	Severity       string    `json:"severity" yaml:"severity"`
	Intervention   bool      `json:"intervention_recommended" yaml:"intervention_recommended"`
	Recommendation string    `json:"recommendation" yaml:"recommendation"`
	Detail         string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	Message        string    `json:"message,omitempty" yaml:"message,omitempty"`
	HasImage       bool      `json:"has_processed_image" yaml:"has_processed_image"`
	ReceivedAt     time.Time `json:"received_at" yaml:"received_at"`
}

// NewReport derives a [Report] from result.
func NewReport(fileName string, result *models.AnalysisResult) Report {
	rec := severity.Recommend(result)
	return Report{
		File:           fileName,
		WetPercentage:  result.WetPercentage,
		Display:        severity.FormatPercentage(result.WetPercentage),
		Severity:       severity.Evaluate(result.WetPercentage).String(),
		Intervention:   rec.Recommended,
		Recommendation: rec.Title,
		Detail:         rec.Detail,
		Message:        result.Message,
		HasImage:       result.ProcessedImage != "",
		ReceivedAt:     result.ReceivedAt,
	}
}

// ExportToCSV converts a set of reports to CSV with columns: File, WetPercentage, Severity, Intervention, Recommendation, ReceivedAt
func ExportToCSV(reports ...Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"File", "WetPercentage", "Severity", "Intervention", "Recommendation", "ReceivedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range reports {
		record := []string{
			r.File,
			strconv.FormatFloat(r.WetPercentage, 'f', 1, 64),
			r.Severity,
			strconv.FormatBool(r.Intervention),
			r.Recommendation,
			formatTime(r.ReceivedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Report to Markdown format with an optional processed image
func ExportToMarkdown(r Report, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Litter Analysis: %s\n\n", r.File)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Processed image](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Wet litter**: %s\n", r.Display)
	fmt.Fprintf(&buf, "**Severity**: %s\n", r.Severity)
	if r.Message != "" {
		fmt.Fprintf(&buf, "**Note**: %s\n", r.Message)
	}
	if !r.ReceivedAt.IsZero() {
		fmt.Fprintf(&buf, "**Analyzed**: %s\n", formatTime(r.ReceivedAt))
	}

	buf.WriteString("\n## Intervention\n\n")
	if r.Intervention {
		fmt.Fprintf(&buf, "- **%s**: %s\n", r.Recommendation, r.Detail)
	} else {
		fmt.Fprintf(&buf, "%s\n", r.Recommendation)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Report to plain text format
func ExportToText(r Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "File: %s\n", r.File)
	fmt.Fprintf(&buf, "Wet litter: %s\n", r.Display)
	fmt.Fprintf(&buf, "Severity: %s\n", r.Severity)
	if r.Message != "" {
		fmt.Fprintf(&buf, "Note: %s\n", r.Message)
	}
	buf.WriteString("\n")

	if r.Intervention {
		fmt.Fprintf(&buf, "Intervention: %s\n  %s\n", r.Recommendation, r.Detail)
	} else {
		fmt.Fprintf(&buf, "%s\n", r.Recommendation)
	}

	return buf.Bytes(), nil
}

// DecodeDataURL decodes a base64 data URL (data:image/jpeg;base64,...) and returns the payload with its media type
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(dataURL), "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data URL", shared.ErrInvalidInput)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: data URL has no payload", shared.ErrInvalidInput)
	}

	params := strings.Split(meta, ";")
	mediaType := params[0]
	if mediaType == "" {
		mediaType = "text/plain"
	}

	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}

	if !isBase64 {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		return []byte(data), mediaType, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid base64 payload: %v", shared.ErrInvalidInput, err)
	}
	return data, mediaType, nil
}

// SaveImage writes the image in dataURL to path.
//
// When path has no extension one is derived from the media type. Returns the path written.
func SaveImage(dataURL, path string) (string, error) {
	data, mediaType, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: data URL is %s, not an image", shared.ErrInvalidInput, mediaType)
	}

	if filepath.Ext(path) == "" {
		path += extensionFor(mediaType)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Image     string
}

// WriteMarkdownExport writes a report to {dir}/README.md and, when present, the processed image next to it.
func WriteMarkdownExport(r Report, processedImage, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = strings.TrimSuffix(r.File, filepath.Ext(r.File)) + "_analysis"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var imageFilename string
	if processedImage != "" {
		path, err := SaveImage(processedImage, filepath.Join(outputDir, "processed"))
		if err != nil {
			return nil, fmt.Errorf("failed to save processed image: %w", err)
		}
		imageFilename = filepath.Base(path)
		result.Image = path
		result.Files = append(result.Files, path)
	}

	mdData, err := ExportToMarkdown(r, imageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
