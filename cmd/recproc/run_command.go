package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recproc/internal/config"
	"recproc/internal/history"
	"recproc/internal/logging"
	"recproc/internal/pipeline"
	"recproc/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var maxCount int

	cmd := &cobra.Command{
		Use:   "run <source-dir>",
		Short: "Copy timelapses, compress recordings and extract clips into the archive",
		Long: `Process one recording session directory.

New timelapses are copied into the archive directory, recordings without an
archived copy are compressed, and the clips listed in the directive file
(extract.txt by default) are cut from their recordings. Outputs that already
exist are skipped, so an interrupted or capped run resumes where it stopped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("max-count") {
				maxCount = cfg.Run.MaxCount
			}
			if maxCount < 0 {
				return fmt.Errorf("--max-count must be >= 0")
			}
			return runBatch(cmd, cfg, args[0], maxCount)
		},
	}

	cmd.Flags().IntVarP(&maxCount, "max-count", "n", 0, "Maximum jobs attempted per phase (0 = no limit; default from run.max_count)")
	return cmd
}

func runBatch(cmd *cobra.Command, cfg *config.Config, sourceArg string, maxCount int) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, err := filepath.Abs(sourceArg)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := logging.RunLogPath(cfg, stamp)
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "recproc-*.log", Exclude: []string{logPath}},
	)

	target := pipeline.TargetDir(cfg, source)
	if err := preflight.Err(preflight.RunAll(signalCtx, cfg, source, target)); err != nil {
		return err
	}

	var opts []pipeline.Option
	if cfg.Run.RecordHistory {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check [paths].state_dir or set run.record_history = false"),
				logging.String(logging.FieldImpact, "this run is not recorded"),
			)
		} else {
			defer store.Close()
			opts = append(opts, pipeline.WithHistory(store))
		}
	}

	summary, err := pipeline.New(cfg, logger, opts...).Run(signalCtx, pipeline.Request{
		SourceDir: source,
		MaxCount:  maxCount,
	})
	if summary.RunID != "" {
		fmt.Fprintln(cmd.OutOrStdout(), renderRunSummary(summary, logPath))
	}
	if err != nil {
		return err
	}
	if summary.DirectiveErr != nil {
		return fmt.Errorf("directive file rejected: %w", summary.DirectiveErr)
	}
	return nil
}
