package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"recproc/internal/batch"
	"recproc/internal/config"
	"recproc/internal/directive"
	"recproc/internal/fileutil"
	"recproc/internal/history"
	"recproc/internal/jobs"
	"recproc/internal/logging"
	"recproc/internal/media/ffmpeg"
	"recproc/internal/media/ffprobe"
	"recproc/internal/scan"
	"recproc/internal/services"
)

// LockFileName is created in the archive directory while a run holds it.
const LockFileName = ".recproc.lock"

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTranscoder replaces the ffmpeg runner (primarily for tests).
func WithTranscoder(t batch.Transcoder) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.transcoder = t
		}
	}
}

// WithVerifier enables output verification with v.
func WithVerifier(v batch.Verifier) Option {
	return func(p *Pipeline) {
		p.verifier = v
	}
}

// WithHistory records runs and job outcomes into store.
func WithHistory(store *history.Store) Option {
	return func(p *Pipeline) {
		p.history = store
	}
}

// Pipeline wires scanning, planning and execution for one configuration.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	transcoder batch.Transcoder
	verifier   batch.Verifier
	history    *history.Store
}

// New constructs a Pipeline. Without options it drives ffmpeg directly and
// verifies outputs with ffprobe when transcoder.verify_outputs is set.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		transcoder: ffmpeg.NewRunner(cfg),
	}
	if cfg.Transcoder.VerifyOutputs {
		p.verifier = ffprobe.NewVerifier(cfg)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request describes one run.
type Request struct {
	SourceDir string
	// MaxCount caps transcoder invocations per phase; 0 means unbounded.
	MaxCount int
	// RunID overrides the generated run identifier.
	RunID string
}

// Summary reports what a run did.
type Summary struct {
	RunID      string
	SourceDir  string
	TargetDir  string
	Recordings int
	Timelapses int

	TimelapsesCopied int
	TimelapsesFailed int

	Compress batch.Report
	Extract  batch.Report

	// DirectiveMissing is set when no directive file was found.
	DirectiveMissing bool
	// DirectiveErr holds a parse failure; extraction was skipped.
	DirectiveErr error
	Unresolved   []jobs.Unresolved
	Interrupted  bool
}

// TargetDir returns the archive directory for source: the configured
// paths.target_dir, or a sibling of source named with paths.archive_suffix.
func TargetDir(cfg *config.Config, source string) string {
	if cfg.Paths.TargetDir != "" {
		return cfg.Paths.TargetDir
	}
	source = filepath.Clean(source)
	return filepath.Join(filepath.Dir(source), filepath.Base(source)+cfg.Paths.ArchiveSuffix)
}

// Run executes one batch. Scan failures and lock contention are returned
// before any work starts; an interruption returns an error matching
// services.ErrInterrupted together with the partial Summary.
func (p *Pipeline) Run(ctx context.Context, req Request) (Summary, error) {
	source, err := filepath.Abs(req.SourceDir)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve source: %w", err)
	}
	summary := Summary{SourceDir: source}

	scanned, err := scan.Scan(source, p.logger)
	if err != nil {
		return summary, err
	}
	summary.Recordings = len(scanned.Recordings)
	summary.Timelapses = len(scanned.Timelapses)

	target := TargetDir(p.cfg, source)
	if filepath.Clean(target) == source {
		return summary, services.Wrap(services.ErrConfiguration, "pipeline", "target", "archive directory must differ from the source", nil)
	}
	summary.TargetDir = target
	if err := os.MkdirAll(target, 0o755); err != nil {
		return summary, fmt.Errorf("create archive directory: %w", err)
	}

	lock := flock.New(filepath.Join(target, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire archive lock: %w", err)
	}
	if !locked {
		return summary, services.Wrap(services.ErrLocked, "pipeline", "lock", target, nil)
	}
	defer func() { _ = lock.Unlock() }()

	summary.RunID = req.RunID
	if summary.RunID == "" {
		summary.RunID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run started",
		logging.String("source", source),
		logging.String("target", target),
		logging.Int("max_count", req.MaxCount),
		logging.String(logging.FieldEventType, "run_started"),
	)

	recorder := p.beginHistory(ctx, logger, summary)
	finish := func(status history.RunStatus, message string) {
		p.finishHistory(ctx, logger, summary.RunID, status, message)
	}

	if p.cfg.Run.CopyTimelapses {
		if err := p.copyTimelapses(ctx, logger, scanned.Timelapses, target, &summary); err != nil {
			summary.Interrupted = true
			finish(history.RunInterrupted, err.Error())
			return summary, err
		}
	}

	compressJobs := jobs.BuildCompress(scanned.Recordings, target, logger)
	summary.Compress, err = batch.Run(ctx, jobs.CompressList(compressJobs), p.transcoder, p.batchOptions(req, jobs.KindCompress, recorder, logger))
	if err != nil {
		summary.Interrupted = errors.Is(err, services.ErrInterrupted)
		finish(history.RunInterrupted, err.Error())
		return summary, err
	}

	if err := p.extract(ctx, logger, req, scanned, target, recorder, &summary); err != nil {
		summary.Interrupted = errors.Is(err, services.ErrInterrupted)
		finish(history.RunInterrupted, err.Error())
		return summary, err
	}

	status, message := history.RunCompleted, ""
	if summary.DirectiveErr != nil {
		status, message = history.RunFailed, summary.DirectiveErr.Error()
	}
	finish(status, message)
	logger.Info("run finished",
		logging.Int("compressed", summary.Compress.Succeeded),
		logging.Int("extracted", summary.Extract.Succeeded),
		logging.Int("failed", summary.Compress.Failed+summary.Extract.Failed),
		logging.Int("timelapses_copied", summary.TimelapsesCopied),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	return summary, nil
}

func (p *Pipeline) batchOptions(req Request, kind jobs.Kind, recorder batch.Recorder, logger *slog.Logger) batch.Options {
	return batch.Options{
		MaxCount:   req.MaxCount,
		Phase:      string(kind),
		JobTimeout: p.cfg.JobTimeout(),
		Verifier:   p.verifier,
		Recorder:   recorder,
		Logger:     logger,
	}
}

func (p *Pipeline) extract(ctx context.Context, logger *slog.Logger, req Request, scanned scan.Result, target string, recorder batch.Recorder, summary *Summary) error {
	path := filepath.Join(scanned.Dir, p.cfg.Directives.FileName)
	directives, err := directive.Parse(path, logger)
	switch {
	case errors.Is(err, services.ErrDirectiveFileNotFound):
		summary.DirectiveMissing = true
		logger.Info("no directive file; skipping extraction",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "extract_skipped"),
		)
		return nil
	case err != nil:
		summary.DirectiveErr = err
		logging.ErrorWithContext(logger, "directive file rejected; skipping extraction", "directive_malformed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "fix the reported line; each line needs: index start end title"),
		)
		return nil
	}

	if err := fileutil.CopyNoClobber(path, filepath.Join(target, filepath.Base(path))); err != nil && !errors.Is(err, fileutil.ErrDestinationExists) {
		logging.WarnWithContext(logger, "directive file not archived", "directive_copy_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the archive directory"),
			logging.String(logging.FieldImpact, "archive lacks a copy of the directive file"),
		)
	}

	naming := jobs.Naming{
		Prefix:    p.cfg.Extract.Prefix,
		Container: p.cfg.Extract.Container,
		Width:     scanned.IndexWidth(),
	}
	extractJobs, unresolved := jobs.BuildExtract(scanned.Recordings, directives, target, naming, logger)
	summary.Unresolved = unresolved

	summary.Extract, err = batch.Run(ctx, jobs.ExtractList(extractJobs), p.transcoder, p.batchOptions(req, jobs.KindExtract, recorder, logger))
	return err
}

func (p *Pipeline) copyTimelapses(ctx context.Context, logger *slog.Logger, timelapses []scan.MediaFile, target string, summary *Summary) error {
	for _, tl := range timelapses {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrInterrupted, "pipeline", "timelapse copy", "", err)
		}
		dst := filepath.Join(target, tl.Name)
		if fileutil.Exists(dst) {
			continue
		}
		if err := fileutil.CopyNoClobber(tl.Path, dst); err != nil {
			if errors.Is(err, fileutil.ErrDestinationExists) {
				continue
			}
			summary.TimelapsesFailed++
			logging.WarnWithContext(logger, "timelapse copy failed", "timelapse_copy_failed",
				logging.Error(err),
				logging.String(logging.FieldInput, tl.Path),
				logging.String(logging.FieldOutput, dst),
				logging.String(logging.FieldErrorHint, "check free space on the archive volume"),
				logging.String(logging.FieldImpact, "timelapse not archived; retried on the next run"),
			)
			continue
		}
		summary.TimelapsesCopied++
		logger.Info("timelapse copied",
			logging.String(logging.FieldInput, tl.Path),
			logging.String(logging.FieldOutput, dst),
			logging.String(logging.FieldPhase, "timelapse"),
			logging.String(logging.FieldEventType, "timelapse_copied"),
		)
	}
	return nil
}

func (p *Pipeline) beginHistory(ctx context.Context, logger *slog.Logger, summary Summary) batch.Recorder {
	if p.history == nil {
		return nil
	}
	if err := p.history.BeginRun(ctx, summary.RunID, summary.SourceDir, summary.TargetDir); err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_begin_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check [paths].state_dir"),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return nil
	}
	return p.history.ForRun(summary.RunID)
}

func (p *Pipeline) finishHistory(ctx context.Context, logger *slog.Logger, runID string, status history.RunStatus, message string) {
	if p.history == nil {
		return
	}
	if err := p.history.FinishRun(context.WithoutCancel(ctx), runID, status, message); err != nil {
		logger.Debug("run history not finalized", logging.Error(err))
	}
}
