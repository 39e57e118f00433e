package preflight

import (
	"context"

	"recproc/internal/config"
	"recproc/internal/deps"
)

// BinaryResults converts dependency statuses into check results.
func BinaryResults(statuses []deps.Status) []Result {
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
		switch {
		case status.Available && status.Version != "":
			result.Detail = status.Version
		case status.Available:
			result.Detail = status.Path
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// RuntimeStatus runs the binary checks and asks each available binary for its
// version. Used by status output where the extra process launches are fine.
func RuntimeStatus(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return BinaryResults(deps.WithVersions(ctx, CheckSystemDeps(cfg)))
}
