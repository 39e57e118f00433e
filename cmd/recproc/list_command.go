package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"recproc/internal/config"
	"recproc/internal/directive"
	"recproc/internal/fileutil"
	"recproc/internal/jobs"
	"recproc/internal/logging"
	"recproc/internal/pipeline"
	"recproc/internal/scan"
	"recproc/internal/services"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <source-dir>",
		Short: "Show recordings, timelapses and directives without processing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve source: %w", err)
			}
			scanned, err := scan.Scan(source, logging.NewNop())
			if err != nil {
				return err
			}
			target := pipeline.TargetDir(cfg, source)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source:  %s\nArchive: %s\n", source, target)
			fmt.Fprintln(out, renderRecordings(scanned, target))
			fmt.Fprintln(out, renderTimelapses(scanned, target))
			fmt.Fprintln(out, renderDirectives(cfg, scanned, target))
			return nil
		},
	}
}

func archivedLabel(path string) string {
	if fileutil.Exists(path) {
		return "archived"
	}
	return "pending"
}

func renderRecordings(scanned scan.Result, target string) string {
	spec := tableSpec{
		title:   fmt.Sprintf("Recordings (%d)", len(scanned.Recordings)),
		headers: []string{"Index", "Recording", "Status"},
		aligns:  []columnAlignment{alignRight, alignLeft, alignLeft},
	}
	for _, rec := range scanned.Recordings {
		spec.add(strconv.Itoa(rec.Index), rec.Name, archivedLabel(filepath.Join(target, rec.Name)))
	}
	return spec.render()
}

func renderTimelapses(scanned scan.Result, target string) string {
	spec := tableSpec{
		title:   fmt.Sprintf("Timelapses (%d)", len(scanned.Timelapses)),
		headers: []string{"Timelapse", "Status"},
	}
	for _, tl := range scanned.Timelapses {
		spec.add(tl.Name, archivedLabel(filepath.Join(target, tl.Name)))
	}
	return spec.render()
}

func renderDirectives(cfg *config.Config, scanned scan.Result, target string) string {
	path := filepath.Join(scanned.Dir, cfg.Directives.FileName)
	directives, err := directive.Parse(path, logging.NewNop())
	switch {
	case errors.Is(err, services.ErrDirectiveFileNotFound):
		return fmt.Sprintf("No directive file (%s).", cfg.Directives.FileName)
	case err != nil:
		return fmt.Sprintf("Directive file rejected: %v", err)
	}

	naming := jobs.Naming{Prefix: cfg.Extract.Prefix, Container: cfg.Extract.Container, Width: scanned.IndexWidth()}
	_, unresolved := jobs.BuildExtract(scanned.Recordings, directives, target, naming, logging.NewNop())
	missing := make(map[int]bool, len(unresolved))
	for _, u := range unresolved {
		missing[u.Directive.Line] = true
	}

	spec := tableSpec{
		title:   fmt.Sprintf("Directives (%d)", len(directives)),
		headers: []string{"Line", "Index", "Start", "End", "Clip", "Status"},
		aligns:  []columnAlignment{alignRight, alignRight},
	}
	for _, d := range directives {
		clip := jobs.ClipName(naming, d.Index, d.Title)
		status := archivedLabel(filepath.Join(target, clip))
		if missing[d.Line] {
			status = "no recording"
		}
		spec.add(strconv.Itoa(d.Line), strconv.Itoa(d.Index), d.Start, d.End, clip, status)
	}
	return spec.render()
}
