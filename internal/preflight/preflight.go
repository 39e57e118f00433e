package preflight

import (
	"context"
	"fmt"
	"strings"

	"recproc/internal/config"
	"recproc/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional failures are reported but do not block a run.
	Optional bool
	Detail   string
	// Cause is a services sentinel describing the failure, when one applies.
	Cause error
}

// RunAll executes the checks a run over source into target depends on.
func RunAll(ctx context.Context, cfg *config.Config, source, target string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Source directory", source),
		CheckWritablePath("Archive directory", target),
		CheckWritablePath("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Run.RecordHistory {
		results = append(results, CheckWritablePath("State directory", cfg.Paths.StateDir))
	}
	results = append(results, BinaryResults(CheckSystemDeps(cfg))...)
	return results
}

// Err returns an error matching services.ErrConfiguration that names every
// failed required check, or nil when all of them passed. The error also
// matches the Cause of the first failed check that carries one.
func Err(results []Result) error {
	var (
		failed []string
		cause  error
	)
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		if cause == nil {
			cause = r.Cause
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "checks", strings.Join(failed, "; "), cause)
}
