// Package directive parses the extraction directive file.
//
// Each non-blank line has the form
//
//	index start end title
//
// where index is a non-negative integer referring to a recording, start and
// end are HH:MM:SS timestamps (optionally with fractional seconds) and title
// is the rest of the line, which may contain spaces and any Unicode text.
// A title wrapped in double quotes has them removed.
package directive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"recproc/internal/logging"
	"recproc/internal/services"
	"recproc/internal/textutil"
)

// Directive requests one clip from the recording with the given index.
type Directive struct {
	// Line is the 1-based line number in the directive file.
	Line  int
	Index int
	Start string
	End   string
	Title string
}

// MalformedError reports the first unparseable line of a directive file.
type MalformedError struct {
	Line   int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Is matches services.ErrMalformedDirective.
func (e *MalformedError) Is(target error) bool {
	return target == services.ErrMalformedDirective
}

var timestampPattern = regexp.MustCompile(`^([0-9]{2,}):([0-5][0-9]):([0-5][0-9])(\.[0-9]+)?$`)

const maxLineBytes = 1 << 20

// Parse reads the directive file at path. A missing file fails with
// services.ErrDirectiveFileNotFound; the first malformed line aborts parsing
// with an error matching services.ErrMalformedDirective.
func Parse(path string, logger *slog.Logger) ([]Directive, error) {
	logger = logging.NewComponentLogger(logger, "directive")

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrDirectiveFileNotFound, "directive", "open", path, err)
		}
		return nil, fmt.Errorf("open directive file %s: %w", path, err)
	}
	defer file.Close()

	directives, err := ParseReader(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	logger.Info("directives parsed",
		logging.String("path", path),
		logging.Int("count", len(directives)),
		logging.String(logging.FieldEventType, "directives_parsed"),
	)
	return directives, nil
}

// ParseReader parses directives from r in file order.
func ParseReader(r io.Reader) ([]Directive, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	var out []Directive
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		d, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read directives: %w", err)
	}
	return out, nil
}

func parseLine(line string, lineNo int) (Directive, error) {
	fields, rest := splitFields(line, 3)
	title := unquote(strings.TrimSpace(rest))
	if len(fields) < 3 || title == "" {
		return Directive{}, &MalformedError{Line: lineNo, Reason: "expected four fields: index start end title"}
	}

	index, err := strconv.Atoi(fields[0])
	if err != nil || index < 0 {
		return Directive{}, &MalformedError{Line: lineNo, Reason: fmt.Sprintf("index %q is not a non-negative integer", fields[0])}
	}
	for _, ts := range fields[1:3] {
		if _, err := ParseTimestamp(ts); err != nil {
			return Directive{}, &MalformedError{Line: lineNo, Reason: err.Error()}
		}
	}
	if textutil.SanitizeTitle(title) == "" {
		return Directive{}, &MalformedError{Line: lineNo, Reason: fmt.Sprintf("title %q has no characters usable in a file name", title)}
	}

	return Directive{
		Line:  lineNo,
		Index: index,
		Start: fields[1],
		End:   fields[2],
		Title: textutil.NormalizeName(title),
	}, nil
}

// splitFields returns up to n leading whitespace-separated fields and the
// unconsumed remainder of line.
func splitFields(line string, n int) ([]string, string) {
	fields := make([]string, 0, n)
	rest := line
	for len(fields) < n {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			break
		}
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			fields = append(fields, rest)
			rest = ""
			break
		}
		fields = append(fields, rest[:end])
		rest = rest[end:]
	}
	return fields, rest
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.TrimSpace(strings.ReplaceAll(s[1:len(s)-1], `""`, `"`))
	}
	return s
}

// ParseTimestamp converts an HH:MM:SS[.fff] string into a duration.
func ParseTimestamp(value string) (time.Duration, error) {
	m := timestampPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("timestamp %q is not HH:MM:SS", value)
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", value, err)
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if m[4] != "" {
		frac, err := strconv.ParseFloat("0"+m[4], 64)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", value, err)
		}
		d += time.Duration(frac * float64(time.Second))
	}
	return d, nil
}
