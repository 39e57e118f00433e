package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"recproc/internal/pipeline"
	"recproc/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [source-dir]",
		Short: "Check configuration, external programs and directories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configDetail := ctx.configPath
			if !ctx.configSeen {
				configDetail += " (not found; defaults in use)"
			}
			lines = append(lines,
				renderStatusLine("Config file", statusInfo, configDetail, colorize),
				renderStatusLine("Directive file", statusInfo, cfg.Directives.FileName, colorize),
				renderStatusLine("Verify outputs", statusInfo, yesNo(cfg.Transcoder.VerifyOutputs), colorize),
				renderStatusLine("Record history", statusInfo, yesNo(cfg.Run.RecordHistory), colorize),
			)

			var results []preflight.Result
			binaries := preflight.RuntimeStatus(cmd.Context(), cfg)
			results = append(results, binaries...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("External programs", colorize)...)
			for _, r := range binaries {
				lines = append(lines, renderStatusLine(r.Name, checkStatusKind(r), r.Detail, colorize))
			}

			dirs := []preflight.Result{
				preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
				preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
			}
			if len(args) == 1 {
				source, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("resolve source: %w", err)
				}
				dirs = append(dirs,
					preflight.CheckReadableDirectory("Source directory", source),
					preflight.CheckWritablePath("Archive directory", pipeline.TargetDir(cfg, source)),
				)
			}
			results = append(results, dirs...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			for _, r := range dirs {
				lines = append(lines, renderStatusLine(r.Name, checkStatusKind(r), r.Detail, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return preflight.Err(results)
		},
	}
}
