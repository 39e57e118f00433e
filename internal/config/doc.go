// Package config loads, normalizes, and validates recproc configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// RECPROC_FFMPEG. The Config type centralizes every knob the batch pipeline
// and CLI need: where archives and logs go, how the transcoder is driven, and
// how clips are named.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
