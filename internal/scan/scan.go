// Package scan lists a source directory and groups its media files by kind.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"recproc/internal/classify"
	"recproc/internal/logging"
	"recproc/internal/services"
	"recproc/internal/textutil"
)

// MediaFile is one classified entry of the source directory. Identity is Path.
type MediaFile struct {
	Path        string
	Name        string
	Kind        classify.Kind
	Index       int
	IndexDigits int
	HasIndex    bool
}

// Result holds the classified contents of a directory.
type Result struct {
	Dir string
	// Recordings are sorted by index, then name.
	Recordings []MediaFile
	// Timelapses keep directory enumeration order.
	Timelapses []MediaFile
	// Ignored counts entries that are neither recordings nor timelapses.
	Ignored int
}

// IndexWidth returns the widest leading digit run among recordings; clip
// names are zero-padded to this width so they sort by index.
func (r Result) IndexWidth() int {
	width := 0
	for _, rec := range r.Recordings {
		if rec.IndexDigits > width {
			width = rec.IndexDigits
		}
	}
	return width
}

// Scan classifies the regular files directly inside dir, including symlinks
// to regular files. A missing directory
// fails with services.ErrDirectoryNotFound before anything is returned.
func Scan(dir string, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "scan")

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, services.Wrap(services.ErrDirectoryNotFound, "scan", "stat source", dir, err)
		}
		return Result{}, fmt.Errorf("stat source %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Result{}, services.Wrap(services.ErrDirectoryNotFound, "scan", "stat source", dir+" is not a directory", nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read source %s: %w", dir, err)
	}

	res := Result{Dir: dir}
	for _, entry := range entries {
		if !isRegularFile(dir, entry) {
			continue
		}
		name := textutil.NormalizeName(entry.Name())
		c := classify.Classify(name)
		if c.IndexOverflow {
			res.Ignored++
			logging.WarnWithContext(logger, "index too large; file ignored", "index_overflow",
				logging.String("name", name),
				logging.String(logging.FieldErrorHint, "rename the file with a shorter leading number"),
				logging.String(logging.FieldImpact, "file not processed"),
			)
			continue
		}
		file := MediaFile{
			Path:        filepath.Join(dir, entry.Name()),
			Name:        name,
			Kind:        c.Kind,
			Index:       c.Index,
			IndexDigits: c.IndexDigits,
			HasIndex:    c.HasIndex,
		}
		switch c.Kind {
		case classify.Recording:
			res.Recordings = append(res.Recordings, file)
		case classify.Timelapse:
			res.Timelapses = append(res.Timelapses, file)
		default:
			res.Ignored++
		}
	}

	sort.SliceStable(res.Recordings, func(i, j int) bool {
		a, b := res.Recordings[i], res.Recordings[j]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.Name < b.Name
	})

	logger.Info("source scanned",
		logging.String("dir", dir),
		logging.Int("recordings", len(res.Recordings)),
		logging.Int("timelapses", len(res.Timelapses)),
		logging.Int("ignored", res.Ignored),
		logging.String(logging.FieldEventType, "scan_complete"),
	)
	return res, nil
}

// isRegularFile reports whether entry is a regular file, following symlinks.
func isRegularFile(dir string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}
