package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDirectoryNotFound     = errors.New("directory not found")
	ErrDirectiveFileNotFound = errors.New("directive file not found")
	ErrMalformedDirective    = errors.New("malformed directive")
	ErrUnresolvedDirective   = errors.New("unresolved directive")
	ErrTranscoderFailure     = errors.New("transcoder failure")
	ErrInterrupted           = errors.New("interrupted")
	ErrConfiguration         = errors.New("configuration error")
	ErrLocked                = errors.New("target directory locked")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTranscoderFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether a run may continue past err. Directive files that
// are absent, directives that reference unknown recordings, and single failed
// transcoder jobs never abort a batch.
func Recoverable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrDirectiveFileNotFound),
		errors.Is(err, ErrUnresolvedDirective),
		errors.Is(err, ErrTranscoderFailure):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "recproc failure"
	}
	return strings.Join(parts, ": ")
}
