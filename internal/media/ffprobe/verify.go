package ffprobe

import (
	"context"
	"fmt"
	"time"

	"recproc/internal/config"
	"recproc/internal/directive"
	"recproc/internal/jobs"
)

// Verifier probes finished outputs. Compressed outputs must keep the source
// duration and have the configured frame size; clips must last end - start.
type Verifier struct {
	binary    string
	tolerance time.Duration
	width     int
	height    int
	inspect   func(ctx context.Context, binary, path string) (Result, error)
}

// NewVerifier builds a Verifier from configuration.
func NewVerifier(cfg *config.Config) *Verifier {
	return &Verifier{
		binary:    cfg.FFprobeBinary(),
		tolerance: cfg.DurationTolerance(),
		width:     cfg.Compress.Width,
		height:    cfg.Compress.Height,
		inspect:   Inspect,
	}
}

// Verify checks job's output.
func (v *Verifier) Verify(ctx context.Context, job jobs.Job) error {
	out, err := v.inspect(ctx, v.binary, job.OutputPath())
	if err != nil {
		return err
	}
	got, ok := out.Duration()
	if !ok {
		return fmt.Errorf("verify %s: output has no duration", job.Label())
	}

	switch j := job.(type) {
	case jobs.CompressJob:
		src, err := v.inspect(ctx, v.binary, j.InputPath())
		if err != nil {
			return err
		}
		want, ok := src.Duration()
		if ok {
			if err := v.checkDuration(j.Label(), got, want); err != nil {
				return err
			}
		}
		stream, ok := out.VideoStream()
		if !ok {
			return fmt.Errorf("verify %s: output has no video stream", j.Label())
		}
		if stream.Width != v.width || stream.Height != v.height {
			return fmt.Errorf("verify %s: resolution %dx%d, want %dx%d", j.Label(), stream.Width, stream.Height, v.width, v.height)
		}
	case jobs.ExtractJob:
		start, err := directive.ParseTimestamp(j.Start)
		if err != nil {
			return err
		}
		end, err := directive.ParseTimestamp(j.End)
		if err != nil {
			return err
		}
		if err := v.checkDuration(j.Label(), got, end-start); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) checkDuration(label string, got, want time.Duration) error {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > v.tolerance {
		return fmt.Errorf("verify %s: duration %s, want %s (tolerance %s)", label, got, want, v.tolerance)
	}
	return nil
}
