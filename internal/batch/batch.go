package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recproc/internal/fileutil"
	"recproc/internal/jobs"
	"recproc/internal/logging"
	"recproc/internal/services"
)

// Result is what a transcoder reports for one invocation.
type Result struct {
	// Diagnostics holds the transcoder's error stream, one entry per line.
	Diagnostics []string
	Err         error
	Elapsed     time.Duration
}

// Transcoder runs a single job to completion or until ctx is cancelled.
type Transcoder interface {
	Run(ctx context.Context, job jobs.Job) Result
}

// TranscoderFunc adapts a function to the Transcoder interface.
type TranscoderFunc func(ctx context.Context, job jobs.Job) Result

func (f TranscoderFunc) Run(ctx context.Context, job jobs.Job) Result { return f(ctx, job) }

// Verifier inspects a finished output.
type Verifier interface {
	Verify(ctx context.Context, job jobs.Job) error
}

// Recorder persists per-job outcomes.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

// Status is the final state of one job in a batch.
type Status string

const (
	StatusDone        Status = "done"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
	StatusInterrupted Status = "interrupted"
)

// Outcome describes what happened to one job.
type Outcome struct {
	Phase string
	Job   jobs.Job
	// Position is the 1-based attempt counter; zero for skipped jobs.
	Position    int
	Status      Status
	Err         error
	Diagnostics []string
	StartedAt   time.Time
	Elapsed     time.Duration
	// VerifyErr is set when the output was produced but failed verification.
	VerifyErr error
}

// Report summarizes a batch.
type Report struct {
	Phase string
	// Planned is the number of jobs the batch intended to attempt.
	Planned   int
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	// Remaining counts jobs left untouched for a future run, including an
	// interrupted one.
	Remaining   int
	Interrupted bool
	Outcomes    []Outcome
}

// Options tunes Run.
type Options struct {
	// MaxCount caps the number of transcoder invocations; 0 means unbounded.
	MaxCount int
	Phase    string
	// JobTimeout bounds each invocation; 0 disables the watchdog.
	JobTimeout time.Duration
	Verifier   Verifier
	Recorder   Recorder
	Logger     *slog.Logger
}

// Run executes list in order. It returns an error matching
// services.ErrInterrupted when ctx is cancelled; every other per-job problem
// is reported through the Report and does not stop the batch.
func Run(ctx context.Context, list []jobs.Job, tr Transcoder, opts Options) (Report, error) {
	if tr == nil {
		return Report{}, errors.New("batch: transcoder required")
	}
	ctx = services.WithPhase(ctx, opts.Phase)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "batch"))

	planned := len(list)
	if opts.MaxCount > 0 && opts.MaxCount < planned {
		planned = opts.MaxCount
	}
	report := Report{Phase: opts.Phase, Planned: planned}

	for i, job := range list {
		if opts.MaxCount > 0 && report.Attempted >= opts.MaxCount {
			report.Remaining = len(list) - i
			logger.Info("job limit reached",
				logging.Int("max_count", opts.MaxCount),
				logging.Int("remaining", report.Remaining),
				logging.String(logging.FieldEventType, "batch_limit_reached"),
			)
			break
		}
		if err := ctx.Err(); err != nil {
			report.Remaining = len(list) - i
			report.Interrupted = true
			logger.Info("processing interrupted",
				logging.Int("remaining", report.Remaining),
				logging.String(logging.FieldEventType, "batch_interrupted"),
			)
			return report, services.Wrap(services.ErrInterrupted, "batch", opts.Phase, "stopped between jobs", err)
		}
		if fileutil.Exists(job.OutputPath()) {
			report.Skipped++
			outcome := Outcome{Phase: opts.Phase, Job: job, Status: StatusSkipped, StartedAt: time.Now()}
			report.Outcomes = append(report.Outcomes, outcome)
			record(ctx, logger, opts.Recorder, outcome)
			continue
		}

		report.Attempted++
		outcome, interrupted := runOne(ctx, logger, job, tr, report.Attempted, planned, opts)
		report.Outcomes = append(report.Outcomes, outcome)
		record(ctx, logger, opts.Recorder, outcome)

		if interrupted {
			report.Remaining = len(list) - i
			report.Interrupted = true
			logger.Info("processing interrupted",
				logging.String(logging.FieldOutput, job.OutputPath()),
				logging.Int("remaining", report.Remaining),
				logging.String(logging.FieldEventType, "batch_interrupted"),
			)
			return report, services.Wrap(services.ErrInterrupted, "batch", opts.Phase, job.Label(), ctx.Err())
		}
		if outcome.Status == StatusFailed {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}

	logger.Info("batch complete",
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped),
		logging.Int("remaining", report.Remaining),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	return report, nil
}

func runOne(ctx context.Context, logger *slog.Logger, job jobs.Job, tr Transcoder, position, planned int, opts Options) (Outcome, bool) {
	jobLogger := logger.With(
		logging.String(logging.FieldInput, job.InputPath()),
		logging.String(logging.FieldOutput, job.OutputPath()),
		logging.Int(logging.FieldJobIndex, position),
		logging.Int(logging.FieldJobCount, planned),
	)
	jobLogger.Info(fmt.Sprintf("starting [%d/%d] %s", position, planned, job.Label()),
		logging.String(logging.FieldEventType, "job_started"),
	)

	outcome := Outcome{Phase: opts.Phase, Job: job, Position: position, StartedAt: time.Now()}

	jobCtx := ctx
	cancel := context.CancelFunc(func() {})
	if opts.JobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, opts.JobTimeout)
	}
	// Anything already at the output path belongs to someone else.
	existed := fileutil.Exists(job.OutputPath())
	res := tr.Run(jobCtx, job)
	timedOut := jobCtx.Err() != nil && ctx.Err() == nil
	cancel()

	outcome.Diagnostics = res.Diagnostics
	outcome.Elapsed = res.Elapsed
	if outcome.Elapsed == 0 {
		outcome.Elapsed = time.Since(outcome.StartedAt)
	}
	for _, line := range res.Diagnostics {
		jobLogger.Warn(line, logging.String(logging.FieldEventType, "transcoder_diagnostic"))
	}

	if res.Err != nil && ctx.Err() != nil {
		outcome.Status = StatusInterrupted
		outcome.Err = services.Wrap(services.ErrInterrupted, "batch", opts.Phase, job.Label(), res.Err)
		removeOutput(jobLogger, job, existed)
		return outcome, true
	}

	if res.Err != nil {
		err := res.Err
		if timedOut {
			err = fmt.Errorf("watchdog expired after %s: %w", opts.JobTimeout, err)
		}
		if !errors.Is(err, services.ErrTranscoderFailure) {
			err = services.Wrap(services.ErrTranscoderFailure, "batch", opts.Phase, job.Label(), err)
		}
		outcome.Status = StatusFailed
		outcome.Err = err
		removeOutput(jobLogger, job, existed)
		logging.WarnWithContext(jobLogger, fmt.Sprintf("failed [%d/%d] %s", position, planned, job.Label()), "job_failed",
			logging.Error(err),
			logging.Duration("elapsed", outcome.Elapsed),
			logging.String(logging.FieldErrorHint, "inspect the transcoder diagnostics above"),
			logging.String(logging.FieldImpact, "output not produced; it will be retried on the next run"),
		)
		return outcome, false
	}

	outcome.Status = StatusDone
	if opts.Verifier != nil {
		if err := opts.Verifier.Verify(ctx, job); err != nil {
			outcome.VerifyErr = err
			logging.WarnWithContext(jobLogger, "output verification failed", "job_verify_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "compare the output with its source, delete it to redo the job"),
				logging.String(logging.FieldImpact, "output kept but may not match the source"),
			)
		}
	}
	jobLogger.Info(fmt.Sprintf("done [%d/%d] %s", position, planned, job.Label()),
		logging.Duration("elapsed", outcome.Elapsed),
		logging.String(logging.FieldEventType, "job_done"),
	)
	return outcome, false
}

func removeOutput(logger *slog.Logger, job jobs.Job, existed bool) {
	if existed {
		logging.WarnWithContext(logger, "output appeared before the job started; left in place", "output_not_owned",
			logging.String(logging.FieldErrorHint, "check whether another process writes to the archive directory"),
			logging.String(logging.FieldImpact, "the existing file is skipped on the next run"),
		)
		return
	}
	if err := fileutil.RemoveIfExists(job.OutputPath()); err != nil {
		logging.WarnWithContext(logger, "partial output removal failed", "partial_output_remove_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the file by hand before rerunning"),
			logging.String(logging.FieldImpact, "an incomplete output would be skipped on the next run"),
		)
		return
	}
	logger.Debug("partial output removed", logging.String(logging.FieldEventType, "partial_output_removed"))
}

func record(ctx context.Context, logger *slog.Logger, rec Recorder, outcome Outcome) {
	if rec == nil {
		return
	}
	// Recording uses a context that survives cancellation so interrupted jobs are still logged.
	if err := rec.RecordOutcome(context.WithoutCancel(ctx), outcome); err != nil {
		logging.WarnWithContext(logger, "job outcome not recorded", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check [paths].state_dir permissions"),
			logging.String(logging.FieldImpact, "run history is incomplete"),
		)
	}
}
