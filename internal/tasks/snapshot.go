package tasks

import (
	"sync"
	"time"

	"github.com/desertthunder/birdseye/internal/classify"
	"github.com/desertthunder/birdseye/internal/models"
)

// Snapshot represents the latest upload state available to the UI.
type Snapshot struct {
	State        models.UploadState
	SubmissionID string
	FileName     string
	Preview      *models.Preview
	Result       *models.AnalysisResult
	LastError    *classify.Error
	UpdatedAt    time.Time
}

// DisplayImage returns the processed image when there is one, else the local preview.
func (s Snapshot) DisplayImage() string {
	if s.Result != nil && s.Result.ProcessedImage != "" {
		return s.Result.ProcessedImage
	}
	if s.Preview != nil {
		return s.Preview.DataURL
	}
	return ""
}

// store coordinates concurrent updates to the snapshot and tracks the live submission.
type store struct {
	mu       sync.Mutex
	snapshot Snapshot
	inflight bool
	latest   string
}

// begin marks a submission as live. It fails when another submission is in flight.
func (s *store) begin(id, fileName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight {
		return false
	}
	s.inflight = true
	s.latest = id
	s.snapshot.State = models.StateReading
	s.snapshot.SubmissionID = id
	s.snapshot.FileName = fileName
	s.snapshot.LastError = nil
	s.snapshot.UpdatedAt = time.Now()
	return true
}

// finish releases the in-flight slot and returns the controller to idle.
// Orphaned submissions no longer own the slot and leave it alone.
func (s *store) finish(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest != id {
		return
	}
	s.inflight = false
	s.snapshot.State = models.StateIdle
	s.snapshot.UpdatedAt = time.Now()
}

// apply runs fn against the snapshot when id is still the live submission.
func (s *store) apply(id string, fn func(*Snapshot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest != id {
		return false
	}
	fn(&s.snapshot)
	s.snapshot.UpdatedAt = time.Now()
	return true
}

// reset drops all state and orphans any in-flight submission, freeing the slot.
func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight = false
	s.latest = ""
	s.snapshot = Snapshot{State: models.StateIdle, UpdatedAt: time.Now()}
}

func (s *store) get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot
	if s.snapshot.Preview != nil {
		p := *s.snapshot.Preview
		snap.Preview = &p
	}
	if s.snapshot.Result != nil {
		r := *s.snapshot.Result
		snap.Result = &r
	}
	return snap
}
