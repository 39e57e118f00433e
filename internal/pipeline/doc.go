// Package pipeline performs one batch run over a source directory.
//
// A run scans the source, locks the archive directory, copies new timelapses,
// compresses recordings that have no archived copy yet, and then cuts the
// clips requested by the directive file. Each step is idempotent: outputs
// already present in the archive are left alone, so an interrupted or capped
// run is resumed simply by running again.
package pipeline
