package main

import (
	"fmt"
	"strconv"
	"strings"

	"recproc/internal/batch"
	"recproc/internal/pipeline"
)

func renderRunSummary(summary pipeline.Summary, logPath string) string {
	phases := tableSpec{
		title:   "Run " + shortID(summary.RunID),
		headers: []string{"Phase", "Planned", "Done", "Failed", "Skipped", "Remaining"},
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	}
	phases.add("timelapse copy",
		strconv.Itoa(summary.Timelapses),
		strconv.Itoa(summary.TimelapsesCopied),
		strconv.Itoa(summary.TimelapsesFailed),
		strconv.Itoa(summary.Timelapses-summary.TimelapsesCopied-summary.TimelapsesFailed),
		"-",
	)
	phases.add(reportRow("compress", summary.Compress)...)
	phases.add(reportRow("extract", summary.Extract)...)

	var b strings.Builder
	b.WriteString(phases.render())
	b.WriteString("\n")

	for _, u := range summary.Unresolved {
		fmt.Fprintf(&b, "unresolved: line %d index %d %q: %v\n", u.Directive.Line, u.Directive.Index, u.Directive.Title, u.Err)
	}
	for _, o := range failedOutcomes(summary) {
		fmt.Fprintf(&b, "failed: %s: %v\n", o.Job.Label(), o.Err)
	}
	switch {
	case summary.Interrupted:
		b.WriteString("Run interrupted; run again to resume.\n")
	case summary.DirectiveErr != nil:
		fmt.Fprintf(&b, "Extraction skipped: %v\n", summary.DirectiveErr)
	case summary.DirectiveMissing:
		b.WriteString("No directive file; extraction skipped.\n")
	}
	fmt.Fprintf(&b, "Archive: %s\n", summary.TargetDir)
	fmt.Fprintf(&b, "Log:     %s", logPath)
	return b.String()
}

func reportRow(phase string, r batch.Report) []string {
	remaining := strconv.Itoa(r.Remaining)
	if r.Interrupted {
		remaining += " (interrupted)"
	}
	return []string{
		phase,
		strconv.Itoa(r.Planned),
		strconv.Itoa(r.Succeeded),
		strconv.Itoa(r.Failed),
		strconv.Itoa(r.Skipped),
		remaining,
	}
}

func failedOutcomes(summary pipeline.Summary) []batch.Outcome {
	var out []batch.Outcome
	for _, report := range []batch.Report{summary.Compress, summary.Extract} {
		for _, o := range report.Outcomes {
			if o.Status == batch.StatusFailed {
				out = append(out, o)
			}
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
