package jobs_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"recproc/internal/directive"
	"recproc/internal/jobs"
	"recproc/internal/logging"
	"recproc/internal/scan"
	"recproc/internal/services"
)

func scanned(t *testing.T, names ...string) scan.Result {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	res, err := scan.Scan(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return res
}

func TestBuildCompressSkipsExistingOutputs(t *testing.T) {
	res := scanned(t, "1_day1_a.mp4", "2_day1_b.mp4", "3_day2_c.mkv")
	target := t.TempDir()
	if err := os.WriteFile(filepath.Join(target, "2_day1_b.mp4"), []byte("done"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := jobs.BuildCompress(res.Recordings, target, logging.NewNop())
	if len(got) != 2 {
		t.Fatalf("expected 2 jobs, got %d: %+v", len(got), got)
	}
	if got[0].Output != filepath.Join(target, "1_day1_a.mp4") || got[1].Output != filepath.Join(target, "3_day2_c.mkv") {
		t.Fatalf("unexpected outputs: %s, %s", got[0].Output, got[1].Output)
	}
	if got[0].Kind() != jobs.KindCompress || got[0].InputPath() != res.Recordings[0].Path {
		t.Fatalf("unexpected job accessors: %+v", got[0])
	}
}

func TestBuildCompressIsIdempotent(t *testing.T) {
	res := scanned(t, "1_day1_a.mp4", "2_day1_b.mp4")
	target := t.TempDir()

	first := jobs.BuildCompress(res.Recordings, target, nil)
	for _, job := range first {
		if err := os.WriteFile(job.OutputPath(), []byte("encoded"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if second := jobs.BuildCompress(res.Recordings, target, nil); len(second) != 0 {
		t.Fatalf("expected no jobs on rerun, got %+v", second)
	}
}

func TestBuildExtractNamesClipsAndKeepsDirectiveOrder(t *testing.T) {
	res := scanned(t, "021_day1234_x.mkv", "5_day1_y.mp4")
	target := t.TempDir()
	naming := jobs.Naming{Prefix: "clip", Container: "mov", Width: res.IndexWidth()}
	directives := []directive.Directive{
		{Line: 1, Index: 21, Start: "00:00:00", End: "00:00:01", Title: "第一秒片段"},
		{Line: 2, Index: 99, Start: "00:00:00", End: "00:00:05", Title: "missing"},
		{Line: 3, Index: 5, Start: "00:01:00", End: "00:01:10", Title: "second"},
	}

	got, unresolved := jobs.BuildExtract(res.Recordings, directives, target, naming, logging.NewNop())
	if len(got) != 2 {
		t.Fatalf("expected 2 jobs, got %+v", got)
	}
	first := got[0]
	if filepath.Base(first.Output) != "clip_021_第一秒片段.mov" {
		t.Fatalf("unexpected clip name %q", filepath.Base(first.Output))
	}
	if first.Start != "00:00:00" || first.End != "00:00:01" {
		t.Fatalf("timestamps not carried verbatim: %+v", first)
	}
	if first.Input.Name != "021_day1234_x.mkv" {
		t.Fatalf("wrong source %q", first.Input.Name)
	}
	if filepath.Base(got[1].Output) != "clip_005_second.mov" {
		t.Fatalf("unexpected second clip %q", filepath.Base(got[1].Output))
	}

	if len(unresolved) != 1 || unresolved[0].Directive.Index != 99 {
		t.Fatalf("expected one unresolved directive, got %+v", unresolved)
	}
	if !errors.Is(unresolved[0].Err, services.ErrUnresolvedDirective) {
		t.Fatalf("expected ErrUnresolvedDirective, got %v", unresolved[0].Err)
	}
}

func TestBuildExtractSkipsExistingAndDuplicateOutputs(t *testing.T) {
	res := scanned(t, "1_day1_a.mp4")
	target := t.TempDir()
	naming := jobs.Naming{Prefix: "clip", Container: "mov", Width: 2}
	if err := os.WriteFile(filepath.Join(target, "clip_01_done.mov"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	directives := []directive.Directive{
		{Line: 1, Index: 1, Start: "00:00:00", End: "00:00:01", Title: "done"},
		{Line: 2, Index: 1, Start: "00:00:02", End: "00:00:03", Title: "todo"},
		{Line: 3, Index: 1, Start: "00:00:04", End: "00:00:05", Title: "todo"},
	}

	got, unresolved := jobs.BuildExtract(res.Recordings, directives, target, naming, nil)
	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved: %+v", unresolved)
	}
	if len(got) != 1 || got[0].Line != 2 {
		t.Fatalf("expected only line 2 planned, got %+v", got)
	}
}

func TestBuildExtractWarnsWhenDirectivesShareAClipName(t *testing.T) {
	res := scanned(t, "21_day1_a.mp4")
	naming := jobs.Naming{Prefix: "clip", Container: "mov", Width: 3}
	directives := []directive.Directive{
		{Line: 4, Index: 21, Start: "00:00:00", End: "00:00:01", Title: "why?"},
		{Line: 7, Index: 21, Start: "00:00:02", End: "00:00:03", Title: "why"},
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	got, _ := jobs.BuildExtract(res.Recordings, directives, t.TempDir(), naming, logger)
	if len(got) != 1 || got[0].Line != 4 {
		t.Fatalf("expected only line 4 planned, got %+v", got)
	}

	var warning map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry[logging.FieldEventType] == "clip_name_collision" {
			warning = entry
		}
	}
	if warning == nil {
		t.Fatalf("expected clip_name_collision warning, got %s", buf.String())
	}
	if warning["level"] != "WARN" {
		t.Fatalf("level = %v, want WARN", warning["level"])
	}
	if warning["line"] != float64(7) || warning["first_line"] != float64(4) {
		t.Fatalf("warning lines = %v/%v, want 7/4", warning["line"], warning["first_line"])
	}
	if warning[logging.FieldOutput] != filepath.Join(filepath.Dir(got[0].Output), "clip_021_why.mov") {
		t.Fatalf("output = %v", warning[logging.FieldOutput])
	}
}

func TestBuildExtractDuplicateIndexUsesFirstRecording(t *testing.T) {
	res := scanned(t, "4_day1_b.mp4", "4_day1_a.mp4")
	naming := jobs.Naming{Prefix: "clip", Container: "mov", Width: 1}
	directives := []directive.Directive{{Line: 1, Index: 4, Start: "00:00:00", End: "00:00:01", Title: "t"}}

	got, _ := jobs.BuildExtract(res.Recordings, directives, t.TempDir(), naming, nil)
	if len(got) != 1 || got[0].Input.Name != "4_day1_a.mp4" {
		t.Fatalf("expected first recording in scan order, got %+v", got)
	}
}

func TestClipName(t *testing.T) {
	tests := []struct {
		naming jobs.Naming
		index  int
		title  string
		want   string
	}{
		{jobs.Naming{Prefix: "clip", Container: "mov", Width: 3}, 21, "第一秒片段", "clip_021_第一秒片段.mov"},
		{jobs.Naming{Prefix: "clip", Container: "mov", Width: 0}, 7, "x", "clip_7_x.mov"},
		{jobs.Naming{Prefix: "clip", Container: "mov", Width: 2}, 123, "wide", "clip_123_wide.mov"},
		{jobs.Naming{Prefix: "hl", Container: "mkv", Width: 2}, 3, "a/b: c", "hl_03_a-b- c.mkv"},
	}
	for _, tt := range tests {
		if got := jobs.ClipName(tt.naming, tt.index, tt.title); got != tt.want {
			t.Errorf("ClipName(%+v, %d, %q) = %q, want %q", tt.naming, tt.index, tt.title, got, tt.want)
		}
	}
}

func TestListsWidenToJobInterface(t *testing.T) {
	compress := []jobs.CompressJob{{Output: "/t/a.mp4"}}
	extract := []jobs.ExtractJob{{Output: "/t/clip_1_x.mov"}}
	if l := jobs.CompressList(compress); len(l) != 1 || l[0].Kind() != jobs.KindCompress {
		t.Fatalf("unexpected compress list %+v", l)
	}
	if l := jobs.ExtractList(extract); len(l) != 1 || l[0].Label() != "clip_1_x.mov" {
		t.Fatalf("unexpected extract list %+v", l)
	}
}
