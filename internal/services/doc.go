// Package services defines shared primitives consumed by every stage of a
// recproc batch run.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and phase names for logging.
//   - Structured error markers plus the Wrap helper that express the failure
//     taxonomy (fatal scan errors, recoverable directive problems, per-job
//     transcoder failures, user interruption).
//
// Use these helpers when wiring new stage logic so error classification and
// observability stay uniform across the pipeline.
package services
