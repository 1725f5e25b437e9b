package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/severity"
)

var (
	_ list.Item = analysisItem{}
)

// analysisItem wraps [models.AnalysisResult] to implement [list.Item].
type analysisItem struct {
	file   string
	result models.AnalysisResult
}

func (i analysisItem) FilterValue() string { return i.file }
func (i analysisItem) Title() string {
	return fmt.Sprintf("%s  %s", i.file, severity.FormatPercentage(i.result.WetPercentage))
}
func (i analysisItem) Description() string {
	desc := fmt.Sprintf("%s • %s", severity.Evaluate(i.result.WetPercentage), i.result.ReceivedAt.Format("15:04:05"))
	if i.result.Message != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.result.Message)
	}
	return desc
}
