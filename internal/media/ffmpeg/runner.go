package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"recproc/internal/batch"
	"recproc/internal/config"
	"recproc/internal/jobs"
	"recproc/internal/services"
)

// Result is the outcome of one ffmpeg invocation.
type Result = batch.Result

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStderr func(string)) error
}

// Option configures the Runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Runner invokes ffmpeg for compress and extract jobs.
type Runner struct {
	binary   string
	compress config.Compress
	extract  config.Extract
	exec     Executor
}

// NewRunner constructs a Runner from configuration.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		binary:   cfg.FFmpegBinary(),
		compress: cfg.Compress,
		extract:  cfg.Extract,
		exec:     CommandExecutor{Grace: cfg.InterruptGrace()},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Args returns the ffmpeg arguments for job.
func (r *Runner) Args(job jobs.Job) ([]string, error) {
	switch j := job.(type) {
	case jobs.CompressJob:
		return CompressArgs(r.compress, j.InputPath(), j.OutputPath()), nil
	case jobs.ExtractJob:
		return ExtractArgs(r.extract, j.InputPath(), j.OutputPath(), j.Start, j.End), nil
	default:
		return nil, fmt.Errorf("unsupported job type %T", job)
	}
}

// Run executes ffmpeg for job and blocks until it exits.
func (r *Runner) Run(ctx context.Context, job jobs.Job) Result {
	start := time.Now()
	args, err := r.Args(job)
	if err != nil {
		return Result{Err: services.Wrap(services.ErrTranscoderFailure, "ffmpeg", string(job.Kind()), "build arguments", err)}
	}

	var diagnostics []string
	runErr := r.exec.Run(ctx, r.binary, args, func(line string) {
		if line = strings.TrimSpace(line); line != "" {
			diagnostics = append(diagnostics, line)
		}
	})
	res := Result{Diagnostics: diagnostics, Elapsed: time.Since(start)}
	if runErr != nil {
		if ctx.Err() != nil {
			res.Err = fmt.Errorf("ffmpeg %s: %w", job.Kind(), ctx.Err())
		} else {
			res.Err = services.Wrap(services.ErrTranscoderFailure, "ffmpeg", string(job.Kind()), job.Label(), runErr)
		}
	}
	return res
}

// CommandExecutor runs real processes. On cancellation the process receives
// an interrupt so ffmpeg can close its output, and is killed if it has not
// exited after Grace.
type CommandExecutor struct {
	Grace time.Duration
}

func (e CommandExecutor) Run(ctx context.Context, binary string, args []string, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = e.Grace
	cmd.Stdout = io.Discard

	lines := &lineWriter{emit: onStderr}
	cmd.Stderr = lines

	err := cmd.Run()
	lines.Flush()
	if err != nil {
		return fmt.Errorf("run %s: %w", binary, err)
	}
	return nil
}

// lineWriter splits a byte stream into lines.
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		line := string(data[:i])
		w.buf.Next(i + 1)
		if w.emit != nil && line != "" {
			w.emit(line)
		}
	}
	return len(p), nil
}

// Flush emits any trailing text without a line terminator.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 && w.emit != nil {
		w.emit(w.buf.String())
	}
	w.buf.Reset()
}
