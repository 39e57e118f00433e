// Package jobs turns scanned recordings and directives into compression and
// extraction work lists.
//
// Output names are derived only from the input name, the directive index and
// title, so a rerun against a partially populated target directory produces
// jobs for the missing outputs alone.
package jobs

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"recproc/internal/directive"
	"recproc/internal/fileutil"
	"recproc/internal/logging"
	"recproc/internal/scan"
	"recproc/internal/services"
	"recproc/internal/textutil"
)

// Kind names a job type and doubles as the batch phase name.
type Kind string

const (
	KindCompress Kind = "compress"
	KindExtract  Kind = "extract"
)

// Job is one unit of work bound to a single input and output path.
type Job interface {
	Kind() Kind
	InputPath() string
	OutputPath() string
	// Label is a short human description used in logs.
	Label() string
}

// CompressJob re-encodes one recording into the target directory under the same name.
type CompressJob struct {
	Input  scan.MediaFile
	Output string
}

func (j CompressJob) Kind() Kind         { return KindCompress }
func (j CompressJob) InputPath() string  { return j.Input.Path }
func (j CompressJob) OutputPath() string { return j.Output }
func (j CompressJob) Label() string      { return j.Input.Name }

// ExtractJob cuts [Start, End) out of one recording.
type ExtractJob struct {
	Input  scan.MediaFile
	Output string
	Index  int
	Start  string
	End    string
	Title  string
	// Line is the directive file line this job came from.
	Line int
}

func (j ExtractJob) Kind() Kind         { return KindExtract }
func (j ExtractJob) InputPath() string  { return j.Input.Path }
func (j ExtractJob) OutputPath() string { return j.Output }
func (j ExtractJob) Label() string      { return filepath.Base(j.Output) }

// Naming controls clip file names.
type Naming struct {
	Prefix    string
	Container string
	// Width is the zero-padding width for the index.
	Width int
}

// Unresolved records a directive that produced no job.
type Unresolved struct {
	Directive directive.Directive
	Err       error
}

// ClipName renders "<prefix>_<zero-padded index>_<title>.<container>".
func ClipName(naming Naming, index int, title string) string {
	return fmt.Sprintf("%s_%0*d_%s.%s", naming.Prefix, naming.Width, index, textutil.SanitizeTitle(title), naming.Container)
}

// BuildCompress returns one job per recording whose output is not yet in targetDir.
func BuildCompress(recordings []scan.MediaFile, targetDir string, logger *slog.Logger) []CompressJob {
	logger = logging.NewComponentLogger(logger, "jobs")

	out := make([]CompressJob, 0, len(recordings))
	skipped := 0
	for _, rec := range recordings {
		output := filepath.Join(targetDir, rec.Name)
		if fileutil.Exists(output) {
			skipped++
			logger.Debug("compressed output exists; skipping",
				logging.String(logging.FieldInput, rec.Path),
				logging.String(logging.FieldOutput, output),
			)
			continue
		}
		out = append(out, CompressJob{Input: rec, Output: output})
	}
	logger.Info("compression jobs planned",
		logging.Int("jobs", len(out)),
		logging.Int("already_done", skipped),
		logging.String(logging.FieldEventType, "jobs_planned"),
		logging.String(logging.FieldPhase, string(KindCompress)),
	)
	return out
}

// BuildExtract joins directives against recordings by index. Directive order
// is preserved. When several recordings share an index the first one in scan
// order is used. Directives with no matching recording are returned as
// Unresolved and do not stop the remaining directives from being planned.
func BuildExtract(recordings []scan.MediaFile, directives []directive.Directive, targetDir string, naming Naming, logger *slog.Logger) ([]ExtractJob, []Unresolved) {
	logger = logging.NewComponentLogger(logger, "jobs")

	byIndex := make(map[int]scan.MediaFile, len(recordings))
	dupes := make(map[int][]string)
	for _, rec := range recordings {
		if first, ok := byIndex[rec.Index]; ok {
			dupes[first.Index] = append(dupes[first.Index], rec.Name)
			continue
		}
		byIndex[rec.Index] = rec
	}

	var (
		out        []ExtractJob
		unresolved []Unresolved
		warned     = make(map[int]bool)
		planned    = make(map[string]int)
		skipped    int
	)
	for _, d := range directives {
		rec, ok := byIndex[d.Index]
		if !ok {
			err := services.Wrap(services.ErrUnresolvedDirective, "jobs", "resolve directive",
				fmt.Sprintf("line %d: source video not found for index %d", d.Line, d.Index), nil)
			unresolved = append(unresolved, Unresolved{Directive: d, Err: err})
			logging.WarnWithContext(logger, "source video not found for directive", "directive_unresolved",
				logging.Int("index", d.Index),
				logging.Int("line", d.Line),
				logging.String("title", d.Title),
				logging.String(logging.FieldErrorHint, "check the index against the recordings in the source directory"),
				logging.String(logging.FieldImpact, "clip not extracted"),
			)
			continue
		}
		if names := dupes[d.Index]; len(names) > 0 && !warned[d.Index] {
			warned[d.Index] = true
			logging.WarnWithContext(logger, "several recordings share an index; using the first", "duplicate_index",
				logging.Int("index", d.Index),
				logging.String("used", rec.Name),
				logging.Any("ignored", names),
				logging.String(logging.FieldErrorHint, "rename recordings so every index is unique"),
				logging.String(logging.FieldImpact, "clips for this index come from the first recording"),
			)
		}

		output := filepath.Join(targetDir, ClipName(naming, d.Index, d.Title))
		if first, ok := planned[output]; ok {
			skipped++
			logging.WarnWithContext(logger, "directives map to the same clip; keeping the first", "clip_name_collision",
				logging.String(logging.FieldOutput, output),
				logging.Int("line", d.Line),
				logging.Int("first_line", first),
				logging.String(logging.FieldErrorHint, "give each directive for this recording a distinct title"),
				logging.String(logging.FieldImpact, "clip not extracted"),
			)
			continue
		}
		if fileutil.Exists(output) {
			skipped++
			logger.Debug("clip output exists; skipping",
				logging.String(logging.FieldOutput, output),
				logging.Int("line", d.Line),
			)
			continue
		}
		planned[output] = d.Line
		out = append(out, ExtractJob{
			Input:  rec,
			Output: output,
			Index:  d.Index,
			Start:  d.Start,
			End:    d.End,
			Title:  d.Title,
			Line:   d.Line,
		})
	}

	logger.Info("extraction jobs planned",
		logging.Int("jobs", len(out)),
		logging.Int("already_done", skipped),
		logging.Int("unresolved", len(unresolved)),
		logging.String(logging.FieldEventType, "jobs_planned"),
		logging.String(logging.FieldPhase, string(KindExtract)),
	)
	return out, unresolved
}

// CompressList widens compression jobs to the Job interface.
func CompressList(in []CompressJob) []Job {
	out := make([]Job, len(in))
	for i := range in {
		out[i] = in[i]
	}
	return out
}

// ExtractList widens extraction jobs to the Job interface.
func ExtractList(in []ExtractJob) []Job {
	out := make([]Job, len(in))
	for i := range in {
		out[i] = in[i]
	}
	return out
}
