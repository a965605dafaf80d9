package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumeup/internal/config"
	"resumeup/internal/fileutil"
	"resumeup/internal/gateway"
	"resumeup/internal/logging"
	"resumeup/internal/registry"
	"resumeup/internal/services"
	"resumeup/internal/textutil"
)

// Fetcher captures the backend operations delivery needs.
type Fetcher interface {
	Download(ctx context.Context, handle string, w io.Writer, progress gateway.ProgressFunc) (int64, error)
	ArtifactReady(ctx context.Context, handle string) (bool, error)
	Progress(ctx context.Context, id string) gateway.ProgressReport
}

// Result reports where a delivered artifact ended up.
type Result struct {
	// Location is the final path or URL of the artifact.
	Location string
	// Shared reports whether the artifact went through the share surface
	// instead of landing at a stable path.
	Shared bool
}

// Deliverer delivers and shares finished artifacts.
type Deliverer interface {
	Deliver(ctx context.Context, resume *registry.Resume, progress gateway.ProgressFunc) (*Result, error)
	Share(ctx context.Context, resume *registry.Resume, progress gateway.ProgressFunc) (*Result, error)
}

// Option customizes the constructed deliverer.
type Option func(*options)

type options struct {
	picker  DirectoryPicker
	share   ShareSurface
	opener  Opener
	tempDir string
}

// WithPicker overrides the directory picker used by scoped delivery.
func WithPicker(picker DirectoryPicker) Option {
	return func(o *options) {
		if picker != nil {
			o.picker = picker
		}
	}
}

// WithShareSurface overrides the share surface.
func WithShareSurface(share ShareSurface) Option {
	return func(o *options) {
		if share != nil {
			o.share = share
		}
	}
}

// WithOpener overrides the platform opener.
func WithOpener(opener Opener) Option {
	return func(o *options) {
		if opener != nil {
			o.opener = opener
		}
	}
}

// WithTempDir overrides where fetched bytes land before placement.
func WithTempDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.tempDir = dir
		}
	}
}

// New builds the deliverer for the configured target. The target is resolved
// exactly once; the returned value never re-inspects configuration.
func New(cfg *config.Config, fetcher Fetcher, logger *slog.Logger, opts ...Option) (Deliverer, error) {
	target, err := ParseTarget(cfg.Delivery.Target)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "delivery", "new", "delivery target", err)
	}

	o := options{
		opener:  NewExecOpener(cfg.Delivery.Opener),
		tempDir: os.TempDir(),
	}
	o.picker = NewFixedPicker(cfg.Paths.DownloadDir)
	o.share = NewOpenerShare(o.opener)
	for _, opt := range opts {
		opt(&o)
	}

	base := baseDeliverer{
		fetcher:      fetcher,
		share:        o.share,
		opener:       o.opener,
		tempDir:      o.tempDir,
		displayName:  cfg.Delivery.DisplayName,
		readyTimeout: time.Duration(cfg.Backend.ReadyTimeout) * time.Second,
		logger:       logging.NewComponentLogger(logger, "delivery"),
	}

	switch target {
	case TargetBrowser:
		return &browserDeliverer{baseDeliverer: base}, nil
	case TargetScopedStorage:
		return &scopedDeliverer{baseDeliverer: base, picker: o.picker}, nil
	default:
		return &unscopedDeliverer{baseDeliverer: base}, nil
	}
}

type baseDeliverer struct {
	fetcher      Fetcher
	share        ShareSurface
	opener       Opener
	tempDir      string
	displayName  string
	readyTimeout time.Duration
	logger       *slog.Logger
}

func (b *baseDeliverer) handleFor(resume *registry.Resume) (string, error) {
	if resume == nil {
		return "", services.Wrap(services.ErrNotFound, "delivery", "deliver", "no resume", nil)
	}
	if !resume.Deliverable() {
		return "", services.Wrap(services.ErrMalformedArtifact, "delivery", "deliver",
			fmt.Sprintf("resume %s has no retrieval handle", resume.ID), nil)
	}
	return resume.DownloadURL, nil
}

// waitReady polls the backend until the artifact answers, the timeout lapses,
// or the context ends. While waiting it surfaces the backend's best-effort
// progress line.
func (b *baseDeliverer) waitReady(ctx context.Context, id, handle string) error {
	timeout := b.readyTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		ready, err := b.fetcher.ArtifactReady(ctx, handle)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return services.Wrap(services.ErrTimeout, "delivery", "ready",
				"artifact never became available", nil)
		}
		report := b.fetcher.Progress(ctx, id)
		b.logger.Info("waiting for artifact",
			logging.String(logging.FieldResumeID, id),
			logging.String(logging.FieldStage, report.Stage),
			logging.String("message", report.Message),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// fetchToTemp downloads fresh bytes into a uniquely named temp file. Any
// failure removes the partial file; the caller owns the file on success.
func (b *baseDeliverer) fetchToTemp(ctx context.Context, handle string, progress gateway.ProgressFunc) (string, error) {
	if err := os.MkdirAll(b.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	tempPath := filepath.Join(b.tempDir, "resumeup-"+uuid.NewString()+".pdf")

	file, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}

	written, downloadErr := b.fetcher.Download(ctx, handle, file, progress)
	closeErr := file.Close()
	if downloadErr != nil {
		_ = os.Remove(tempPath)
		return "", downloadErr
	}
	if closeErr != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("finalize temp artifact: %w", closeErr)
	}
	if written == 0 {
		_ = os.Remove(tempPath)
		return "", services.Wrap(services.ErrMalformedArtifact, "delivery", "fetch", "artifact was empty", nil)
	}
	return tempPath, nil
}

func (b *baseDeliverer) resolveDisplayName(resume *registry.Resume) string {
	name := strings.TrimSpace(b.displayName)
	if name == "" {
		name = "improved_resume.pdf"
	}
	if resume != nil && strings.TrimSpace(resume.OriginalFilename) != "" {
		stem := strings.TrimSuffix(resume.OriginalFilename, filepath.Ext(resume.OriginalFilename))
		stem = strings.ReplaceAll(strings.TrimSpace(stem), " ", "_")
		if sanitized := textutil.SanitizeFileName("improved_" + stem); sanitized != "" {
			name = sanitized + ".pdf"
		}
	}
	return name
}

type browserDeliverer struct {
	baseDeliverer
}

func (d *browserDeliverer) Deliver(ctx context.Context, resume *registry.Resume, _ gateway.ProgressFunc) (*Result, error) {
	handle, err := d.handleFor(resume)
	if err != nil {
		return nil, err
	}
	if err := d.waitReady(ctx, resume.ID, handle); err != nil {
		return nil, err
	}
	if err := d.opener.Open(ctx, handle); err != nil {
		return nil, services.Wrap(services.ErrTransport, "delivery", "open", "hand URL to opener", err)
	}
	d.logger.Info("opened artifact in browser",
		logging.String(logging.FieldResumeID, resume.ID),
		logging.String(logging.FieldTarget, string(TargetBrowser)),
	)
	return &Result{Location: handle}, nil
}

func (d *browserDeliverer) Share(ctx context.Context, resume *registry.Resume, _ gateway.ProgressFunc) (*Result, error) {
	handle, err := d.handleFor(resume)
	if err != nil {
		return nil, err
	}
	if err := d.share.Share(ctx, handle, d.resolveDisplayName(resume)); err != nil {
		return nil, services.Wrap(services.ErrTransport, "delivery", "share", "hand URL to share surface", err)
	}
	return &Result{Location: handle, Shared: true}, nil
}

type scopedDeliverer struct {
	baseDeliverer
	picker DirectoryPicker
}

// Deliver saves the artifact under the picked directory, verifying the copy
// before the temp file is released. A denied picker or a failed placement
// falls back to sharing the fetched copy, so the user still gets the bytes.
func (d *scopedDeliverer) Deliver(ctx context.Context, resume *registry.Resume, progress gateway.ProgressFunc) (*Result, error) {
	handle, err := d.handleFor(resume)
	if err != nil {
		return nil, err
	}
	if err := d.waitReady(ctx, resume.ID, handle); err != nil {
		return nil, err
	}

	tempPath, err := d.fetchToTemp(ctx, handle, progress)
	if err != nil {
		return nil, err
	}

	displayName := d.resolveDisplayName(resume)

	dir, pickErr := d.picker.Pick(ctx)
	if pickErr != nil {
		d.logger.Warn("directory selection denied; falling back to share",
			logging.String(logging.FieldResumeID, resume.ID),
			logging.Error(pickErr),
		)
		return d.shareTemp(ctx, resume, tempPath, displayName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.logger.Warn("destination unavailable; falling back to share",
			logging.String(logging.FieldResumeID, resume.ID),
			logging.Error(err),
		)
		return d.shareTemp(ctx, resume, tempPath, displayName)
	}
	finalPath := filepath.Join(dir, displayName)
	if err := fileutil.CopyFileVerified(tempPath, finalPath); err != nil {
		d.logger.Warn("placement failed; falling back to share",
			logging.String(logging.FieldResumeID, resume.ID),
			logging.Error(err),
		)
		return d.shareTemp(ctx, resume, tempPath, displayName)
	}
	_ = os.Remove(tempPath)

	// Best effort; the file is already safely placed.
	if err := d.opener.Open(ctx, finalPath); err != nil {
		d.logger.Debug("could not open placed artifact", logging.Error(err))
	}

	d.logger.Info("artifact saved",
		logging.String(logging.FieldResumeID, resume.ID),
		logging.String("path", finalPath),
		logging.String(logging.FieldTarget, string(TargetScopedStorage)),
	)
	return &Result{Location: finalPath}, nil
}

func (d *scopedDeliverer) Share(ctx context.Context, resume *registry.Resume, progress gateway.ProgressFunc) (*Result, error) {
	handle, err := d.handleFor(resume)
	if err != nil {
		return nil, err
	}
	if err := d.waitReady(ctx, resume.ID, handle); err != nil {
		return nil, err
	}
	tempPath, err := d.fetchToTemp(ctx, handle, progress)
	if err != nil {
		return nil, err
	}
	return d.shareTemp(ctx, resume, tempPath, d.resolveDisplayName(resume))
}

func (d *scopedDeliverer) shareTemp(ctx context.Context, resume *registry.Resume, tempPath, displayName string) (*Result, error) {
	if err := d.share.Share(ctx, tempPath, displayName); err != nil {
		_ = os.Remove(tempPath)
		return nil, services.Wrap(services.ErrTransport, "delivery", "share", "hand artifact to share surface", err)
	}
	d.logger.Info("artifact shared",
		logging.String(logging.FieldResumeID, resume.ID),
	)
	return &Result{Location: tempPath, Shared: true}, nil
}

type unscopedDeliverer struct {
	baseDeliverer
}

// Deliver on unscoped storage fetches to a private temp file and immediately
// hands it to the share surface; there is no stable destination to place at.
func (d *unscopedDeliverer) Deliver(ctx context.Context, resume *registry.Resume, progress gateway.ProgressFunc) (*Result, error) {
	return d.Share(ctx, resume, progress)
}

func (d *unscopedDeliverer) Share(ctx context.Context, resume *registry.Resume, progress gateway.ProgressFunc) (*Result, error) {
	handle, err := d.handleFor(resume)
	if err != nil {
		return nil, err
	}
	if err := d.waitReady(ctx, resume.ID, handle); err != nil {
		return nil, err
	}
	tempPath, err := d.fetchToTemp(ctx, handle, progress)
	if err != nil {
		return nil, err
	}
	if err := d.share.Share(ctx, tempPath, d.resolveDisplayName(resume)); err != nil {
		_ = os.Remove(tempPath)
		return nil, services.Wrap(services.ErrTransport, "delivery", "share", "hand artifact to share surface", err)
	}
	d.logger.Info("artifact shared",
		logging.String(logging.FieldResumeID, resume.ID),
		logging.String(logging.FieldTarget, string(TargetUnscopedStorage)),
	)
	return &Result{Location: tempPath, Shared: true}, nil
}
