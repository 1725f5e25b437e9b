package tasks

import (
	"fmt"

	"github.com/desertthunder/birdseye/internal/classify"
	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/severity"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number
	Total   int    // Total steps
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Reading Phase = iota
	Submitting
	Complete
	Failed
	Authenticating
)

func (p Phase) String() string {
	switch p {
	case Reading:
		return "reading"
	case Submitting:
		return "submitting"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	case Authenticating:
		return "authenticating"
	default:
		return ""
	}
}

const uploadSteps = 3

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func readingUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reading,
		Step:    1,
		Total:   uploadSteps,
		Message: fmt.Sprintf("Reading %s...", name),
	}
}

func previewUpdate(p *models.Preview) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reading,
		Step:    1,
		Total:   uploadSteps,
		Message: fmt.Sprintf("Preview ready (%s, %dx%d)", p.Format, p.Width, p.Height),
		Data:    p,
	}
}

func submittingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submitting,
		Step:    2,
		Total:   uploadSteps,
		Message: "Analyzing...",
	}
}

func completeUpdate(result *models.AnalysisResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: Complete,
		Step:  uploadSteps,
		Total: uploadSteps,
		Message: fmt.Sprintf("✓ Wet litter %s (%s)",
			severity.FormatPercentage(result.WetPercentage), severity.Evaluate(result.WetPercentage)),
		Data: result,
	}
}

func failedUpdate(err *classify.Error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    uploadSteps,
		Total:   uploadSteps,
		Message: fmt.Sprintf("✗ %s", err.Message),
		Data:    err,
	}
}

func authenticatingUpdate(identity string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticating,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Signing in as %s...", identity),
	}
}
