package tasks

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/birdseye/internal/classify"
	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/services"
	"github.com/desertthunder/birdseye/internal/shared"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 10 * 1024 * 1024
)

// UploadOptions configures an [UploadController]. Zero values select the defaults.
type UploadOptions struct {
	Timeout   time.Duration // per-request timeout, 30s by default
	MaxBytes  int64         // upload size limit, 10MB by default
	Navigator Navigator
	Notifier  Notifier
}

// UploadController orchestrates image submission and owns the resulting [Snapshot].
type UploadController struct {
	api      AnalysisClient
	sessions SessionStore
	logger   *log.Logger
	opts     UploadOptions
	state    store
}

// NewUploadController creates an [UploadController].
func NewUploadController(api AnalysisClient, sessions SessionStore, logger *log.Logger, opts UploadOptions) *UploadController {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	return &UploadController{
		api:      api,
		sessions: sessions,
		logger:   discardLogger(logger),
		opts:     opts,
	}
}

// Snapshot returns a copy of the current controller state.
func (c *UploadController) Snapshot() Snapshot {
	return c.state.get()
}

// Reset clears the snapshot. A submission still in flight keeps running but its outcome is dropped.
func (c *UploadController) Reset() {
	c.state.reset()
}

// SubmitFile reads the image at path and submits it.
func (c *UploadController) SubmitFile(ctx context.Context, path string, progress chan<- ProgressUpdate) (*models.AnalysisResult, error) {
	upload, err := ReadUpload(path, c.opts.MaxBytes)
	if err != nil {
		return nil, err
	}
	return c.Submit(ctx, upload, progress)
}

// Submit runs one submission to completion.
//
// ctx is the lifetime of the view that started the submission. If it ends before the
// response arrives, the response is discarded and [ErrSubmissionDiscarded] is returned.
// Other failures are returned as a [*classify.Error], except input validation errors
// (wrapping [shared.ErrInvalidInput]) and [ErrSubmissionInFlight].
func (c *UploadController) Submit(ctx context.Context, upload models.UploadRequest, progress chan<- ProgressUpdate) (*models.AnalysisResult, error) {
	if err := ValidateUpload(&upload, c.opts.MaxBytes); err != nil {
		return nil, err
	}

	id := shared.GenerateID()
	if !c.state.begin(id, upload.FileName) {
		return nil, ErrSubmissionInFlight
	}
	defer c.state.finish(id)

	logger := shared.WithLogger(c.logger, "submission", id, "file", upload.FileName)
	logger.Debug("submission started", "bytes", len(upload.Data), "content_type", upload.ContentType)
	sendProgress(progress, readingUpdate(upload.FileName))

	var (
		g      errgroup.Group
		result *models.AnalysisResult
	)

	g.Go(func() error {
		preview, err := DecodePreview(upload.Data)
		if err != nil {
			logger.Warn("preview decode failed", "error", err)
			return nil
		}
		if c.live(ctx, id, func(s *Snapshot) { s.Preview = preview }) {
			sendProgress(progress, previewUpdate(preview))
		}
		return nil
	})

	g.Go(func() error {
		var err error
		result, err = c.submit(ctx, id, upload, progress, logger)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *UploadController) submit(ctx context.Context, id string, upload models.UploadRequest, progress chan<- ProgressUpdate, logger *log.Logger) (*models.AnalysisResult, error) {
	sess, err := c.sessions.RequireSession()
	if err != nil {
		ce, ok := classify.As(err)
		if !ok {
			logger.Error("session check failed", "error", err)
			ce = classify.LoginRequired()
		}
		return nil, c.fail(ctx, id, ce, progress, true)
	}

	c.live(ctx, id, func(s *Snapshot) { s.State = models.StateSubmitting })
	sendProgress(progress, submittingUpdate())

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.api.Upload(reqCtx, sess.Token, upload)

	// A rejected token is cleared even when nobody is left to show the result.
	unauthorized := err == nil && resp.StatusCode == http.StatusUnauthorized
	if unauthorized {
		if err := c.sessions.Clear(); err != nil {
			logger.Error("failed to clear session", "error", err)
		}
	}

	if ctx.Err() != nil {
		logger.Debug("submission discarded", "reason", ctx.Err())
		return nil, discarded(ctx)
	}
	if err != nil {
		logger.Warn("upload failed", "error", err, "elapsed", time.Since(started))
		return nil, c.fail(ctx, id, classify.Transport(err), progress, false)
	}

	logger.Debug("upload response", "status", resp.StatusCode, "elapsed", time.Since(started))

	if unauthorized {
		return nil, c.fail(ctx, id, classify.SessionExpired(), progress, true)
	}

	if !services.IsSuccess(resp) {
		return nil, c.fail(ctx, id, classify.Classify(resp.StatusCode, resp.Body, classify.AuthenticatedContext), progress, false)
	}

	result, err := services.DecodeAnalysis(resp)
	if err != nil {
		logger.Warn("malformed analysis response", "error", err)
		return nil, c.fail(ctx, id, classify.Classify(resp.StatusCode, resp.Body, classify.AuthenticatedContext), progress, false)
	}
	result.ReceivedAt = time.Now()

	if !c.live(ctx, id, func(s *Snapshot) {
		s.Result = result
		s.LastError = nil
	}) {
		return nil, discarded(ctx)
	}

	logger.Info("analysis complete", "wet_percentage", result.WetPercentage)
	sendProgress(progress, completeUpdate(result))
	return result, nil
}

// fail records err in the snapshot and notifies the presentation layer when the
// submission is still live. A redirect means there is no session, so the result is dropped too.
func (c *UploadController) fail(ctx context.Context, id string, err *classify.Error, progress chan<- ProgressUpdate, redirect bool) *classify.Error {
	if !c.live(ctx, id, func(s *Snapshot) {
		s.LastError = err
		if redirect {
			s.Result = nil
		}
	}) {
		return err
	}

	sendProgress(progress, failedUpdate(err))
	if c.opts.Notifier != nil {
		c.opts.Notifier.Notify(err.Message)
	}
	if redirect && c.opts.Navigator != nil {
		c.opts.Navigator.RedirectToLogin()
	}
	return err
}

// live applies fn when ctx is still active and id is still the live submission.
func (c *UploadController) live(ctx context.Context, id string, fn func(*Snapshot)) bool {
	if ctx.Err() != nil {
		return false
	}
	return c.state.apply(id, fn)
}

// ReadUpload loads the file at path as an [models.UploadRequest].
func ReadUpload(path string, maxBytes int64) (models.UploadRequest, error) {
	resolved, err := shared.ExpandPath(path)
	if err != nil {
		return models.UploadRequest{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return models.UploadRequest{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return models.UploadRequest{}, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidInput, path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return models.UploadRequest{}, tooLarge(info.Size(), maxBytes)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return models.UploadRequest{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return models.UploadRequest{FileName: filepath.Base(resolved), Data: data}, nil
}

// ValidateUpload checks that upload is a non-empty image within maxBytes and fills in its
// content type when missing.
func ValidateUpload(upload *models.UploadRequest, maxBytes int64) error {
	if len(upload.Data) == 0 {
		return fmt.Errorf("%w: file is empty", shared.ErrInvalidInput)
	}
	if maxBytes > 0 && int64(len(upload.Data)) > maxBytes {
		return tooLarge(int64(len(upload.Data)), maxBytes)
	}

	sniffed := http.DetectContentType(upload.Data)
	if !strings.HasPrefix(sniffed, "image/") {
		return fmt.Errorf("%w: %s is not an image (%s)", shared.ErrInvalidInput, upload.FileName, sniffed)
	}
	if upload.ContentType == "" {
		upload.ContentType = sniffed
	}
	if upload.FileName == "" {
		upload.FileName = "upload"
	}
	return nil
}

// DecodePreview reads the image header and encodes the file as a data URL for display.
func DecodePreview(data []byte) (*models.Preview, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	return &models.Preview{
		DataURL: "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data),
		Format:  format,
		Width:   cfg.Width,
		Height:  cfg.Height,
	}, nil
}

func discarded(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubmissionDiscarded, err)
	}
	return ErrSubmissionDiscarded
}

func tooLarge(size, limit int64) error {
	return fmt.Errorf("%w: file is %.1f MB, limit is %.0f MB",
		shared.ErrInvalidInput, float64(size)/(1024*1024), float64(limit)/(1024*1024))
}
