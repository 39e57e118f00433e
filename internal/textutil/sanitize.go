package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// NormalizeName returns name in Unicode NFC form.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is NFC-normalized and trimmed of
// leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(NormalizeName(name)))
}

// SanitizeTitle turns a free-form clip title into a single path-safe segment.
// Runs of whitespace collapse to a single space and leading dots are dropped
// so a title can never produce a hidden file or a relative path element.
func SanitizeTitle(title string) string {
	cleaned := SanitizeFileName(strings.Join(strings.Fields(title), " "))
	cleaned = strings.TrimLeft(cleaned, ".")
	return strings.TrimSpace(cleaned)
}
