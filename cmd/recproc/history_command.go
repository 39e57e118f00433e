package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recproc/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs, or the jobs of one run with --run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := cfg.HistoryPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}
			store, err := history.Open(path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if id := strings.TrimSpace(runID); id != "" {
				return printOutcomes(cmd, store, id)
			}
			return printRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the jobs recorded for this run id")
	return cmd
}

func printRuns(cmd *cobra.Command, store *history.Store, limit int) error {
	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	spec := tableSpec{
		headers: []string{"Run", "Started", "Status", "Done", "Failed", "Skipped", "Source"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	}
	for _, run := range runs {
		spec.add(
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(run.Status),
			strconv.Itoa(run.Done),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Skipped),
			run.SourceDir,
		)
	}
	fmt.Fprintln(out, spec.render())
	return nil
}

func printOutcomes(cmd *cobra.Command, store *history.Store, runID string) error {
	outcomes, err := store.Outcomes(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("list outcomes: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(outcomes) == 0 {
		fmt.Fprintf(out, "No jobs recorded for run %s.\n", runID)
		return nil
	}

	spec := tableSpec{
		title:   "Run " + runID,
		headers: []string{"Phase", "Status", "Output", "Elapsed", "Error"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	}
	for _, o := range outcomes {
		spec.add(o.Phase, o.Status, o.OutputPath, o.Duration.Round(time.Millisecond).String(), o.Error)
	}
	fmt.Fprintln(out, spec.render())
	return nil
}
