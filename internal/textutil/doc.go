// Package textutil provides text helpers for building stable file names.
//
// Titles and scanned names are normalized to Unicode NFC so that names read
// from NFD filesystems compare equal to names typed into directive files, and
// filesystem-unsafe characters are replaced before a title becomes part of a
// clip name.
package textutil
