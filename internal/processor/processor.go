package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"resumeup/internal/config"
	"resumeup/internal/gateway"
	"resumeup/internal/ledger"
	"resumeup/internal/logging"
	"resumeup/internal/notifications"
	"resumeup/internal/registry"
	"resumeup/internal/services"
)

// Gateway captures the backend operations the orchestrator needs.
type Gateway interface {
	Upload(ctx context.Context, filePath, templateID string) (*gateway.UploadResult, error)
}

// Processor runs the single-flight improvement flow.
type Processor struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	registry *registry.Registry
	gateway  Gateway
	notifier notifications.Service
	logger   *slog.Logger

	progressInterval time.Duration
}

// Option configures a Processor.
type Option func(*Processor)

// WithProgressInterval overrides the tick rate of the staged estimate.
// Intended for tests.
func WithProgressInterval(interval time.Duration) Option {
	return func(p *Processor) {
		p.progressInterval = interval
	}
}

// New assembles a Processor from its collaborators.
func New(
	cfg *config.Config,
	creditLedger *ledger.Ledger,
	reg *registry.Registry,
	gw Gateway,
	notifier notifications.Service,
	logger *slog.Logger,
	opts ...Option,
) *Processor {
	p := &Processor{
		cfg:      cfg,
		ledger:   creditLedger,
		registry: reg,
		gateway:  gw,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one improvement flow for the file at filePath using the given
// template. It returns the committed entity on success. Failures resolve the
// placeholder as errored and return a classified error; no credit is consumed
// on any failure path.
func (p *Processor) Process(ctx context.Context, filePath, templateID string, onProgress ProgressFunc) (*registry.Resume, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsPermission(err) {
			return nil, services.Wrap(services.ErrPermission, "processor", "process", "read resume file", err)
		}
		return nil, services.Wrap(services.ErrNotFound, "processor", "process", "resume file", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, "processor", "process",
			fmt.Sprintf("%s is a directory", filePath), nil)
	}

	lock, err := p.acquireLock()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Unlock()
	}()

	p.ledger.Load(ctx)
	if !p.ledger.HasCredits() {
		_ = p.notifier.NotifyCreditsExhausted(ctx)
		return nil, services.Wrap(services.ErrInsufficientCredits, "processor", "process", "no credits remaining", nil)
	}

	filename := filepath.Base(filePath)
	tempID := fmt.Sprintf("local-%d", time.Now().UnixNano())
	requestID := uuid.NewString()
	log := p.logger.With(
		logging.String(logging.FieldRequestID, requestID),
		logging.String("filename", filename),
	)

	if _, err := p.registry.BeginPlaceholder(ctx, tempID, filename); err != nil {
		return nil, err
	}

	log.Info("processing started",
		logging.String(logging.FieldResumeID, tempID),
		logging.String("template", templateID),
	)

	est := newSession(onProgress)
	est.run(ctx, p.progressInterval)

	result, uploadErr := p.gateway.Upload(ctx, filePath, templateID)
	if uploadErr != nil {
		est.halt()
		reason := failureReason(ctx, uploadErr)
		if abortErr := p.registry.Abort(context.WithoutCancel(ctx), tempID, reason); abortErr != nil {
			log.Error("failed to record aborted flow", logging.Error(abortErr))
		}
		_ = p.notifier.NotifyProcessingFailed(context.WithoutCancel(ctx), filename, reason)
		log.Warn("processing failed", logging.Error(uploadErr))
		return nil, uploadErr
	}

	est.finish()

	// The backend already did the work; a late cancellation must not leave
	// the placeholder unresolved.
	resolveCtx := context.WithoutCancel(ctx)

	consumed, consumeErr := p.ledger.Consume(resolveCtx)
	if consumeErr != nil {
		log.Warn("credit debit failed after successful processing", logging.Error(consumeErr))
	} else if !consumed {
		// The gate passed earlier, so another flow raced the last credit.
		// The work is done; keep the result and log the discrepancy.
		log.Warn("credit balance was empty at debit time")
	}

	final := &registry.Resume{
		ID:           result.ID,
		OriginalText: result.OriginalText,
		ImprovedText: result.ImprovedText,
		DownloadURL:  result.DownloadURL,
	}
	if commitErr := p.registry.Commit(resolveCtx, tempID, final); commitErr != nil {
		if consumed {
			if refundErr := p.ledger.Add(resolveCtx, 1); refundErr != nil {
				log.Error("failed to refund credit after commit failure", logging.Error(refundErr))
			}
		}
		reason := failureReason(ctx, commitErr)
		if abortErr := p.registry.Abort(resolveCtx, tempID, reason); abortErr != nil {
			log.Error("failed to record aborted flow", logging.Error(abortErr))
		}
		_ = p.notifier.NotifyProcessingFailed(resolveCtx, filename, reason)
		log.Warn("processing failed", logging.Error(commitErr))
		return nil, commitErr
	}

	_ = p.notifier.NotifyProcessingCompleted(resolveCtx, filename)
	log.Info("processing completed",
		logging.String(logging.FieldResumeID, final.ID),
		logging.Int("credits_remaining", p.ledger.Balance()),
	)
	return final, nil
}

func (p *Processor) acquireLock() (*flock.Flock, error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lock := flock.New(filepath.Join(p.cfg.Paths.StateDir, "processing.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire processing lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrProcessingActive, "processor", "process",
			"another processing flow holds the lock", nil)
	}
	return lock, nil
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return "canceled"
	case errors.Is(err, services.ErrTimeout):
		return "upload timed out"
	default:
		msg := err.Error()
		if idx := strings.IndexByte(msg, '\n'); idx > 0 {
			msg = msg[:idx]
		}
		return msg
	}
}
