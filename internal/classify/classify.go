// Package classify recognizes recording and timelapse file names.
//
// Recordings are named "<index>_day<N>_<text>.<ext>" and timelapses
// "<index><letters>_<text>.<ext>" where ext is mp4, mov or mkv. The two
// patterns are mutually exclusive: a recording has "_day" directly after its
// leading digits, a timelapse has lowercase letters there.
package classify

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// Kind is the category of a media file name.
type Kind int

const (
	Other Kind = iota
	Recording
	Timelapse
)

func (k Kind) String() string {
	switch k {
	case Recording:
		return "recording"
	case Timelapse:
		return "timelapse"
	default:
		return "other"
	}
}

var (
	recordingPattern = regexp.MustCompile(`^[0-9]+_day[0-9]+_.*\.(mp4|mov|mkv)$`)
	timelapsePattern = regexp.MustCompile(`^[0-9]+[a-z]+_.*\.(mp4|mov|mkv)$`)
	leadingDigits    = regexp.MustCompile(`^[0-9]+`)
)

// Result describes a classified name.
type Result struct {
	Kind Kind
	// Index is the value of the leading digit run; valid only when HasIndex.
	Index int
	// IndexDigits is the length of the leading digit run as written.
	IndexDigits int
	HasIndex    bool
	// IndexOverflow is set when the name matches a pattern but its digit run
	// does not fit in an int. Such names classify as Other.
	IndexOverflow bool
}

// Classify maps a base file name to its kind and index. It never touches the
// filesystem.
func Classify(name string) Result {
	var res Result
	if digits := leadingDigits.FindString(name); digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			res.Index = n
			res.IndexDigits = len(digits)
			res.HasIndex = true
		}
	}
	switch {
	case recordingPattern.MatchString(name):
		res.Kind = Recording
	case timelapsePattern.MatchString(name):
		res.Kind = Timelapse
	}
	if !res.HasIndex {
		res.IndexOverflow = res.Kind != Other
		res.Kind = Other
	}
	return res
}

// IsRecording reports whether path is an existing regular file named like a recording.
func IsRecording(path string) bool {
	res, ok := classifyPath(path)
	return ok && res.Kind == Recording
}

// IsTimelapse reports whether path is an existing regular file named like a timelapse.
func IsTimelapse(path string) bool {
	res, ok := classifyPath(path)
	return ok && res.Kind == Timelapse
}

// Index returns the leading index of an existing file. Missing paths,
// directories and names without leading digits report false.
func Index(path string) (int, bool) {
	res, ok := classifyPath(path)
	if !ok || !res.HasIndex {
		return 0, false
	}
	return res.Index, true
}

func classifyPath(path string) (Result, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Result{}, false
	}
	return Classify(filepath.Base(path)), true
}
