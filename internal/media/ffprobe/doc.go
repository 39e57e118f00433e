// Package ffprobe provides a typed wrapper around ffprobe JSON output and an
// output verifier built on it.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Verifier: checks finished compress and extract outputs against their
//     expected duration and frame size
//
// Inspect is the primary entry point for probing a file.
package ffprobe
