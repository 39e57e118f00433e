// Package ffmpeg drives the ffmpeg CLI for recording compression and clip
// extraction.
//
// Argument construction is separated from execution so the command lines can
// be tested without a binary. The Runner satisfies batch.Transcoder: it
// streams ffmpeg's error output into diagnostics, asks ffmpeg to stop with an
// interrupt when the context is cancelled, and kills it after a grace period.
package ffmpeg
