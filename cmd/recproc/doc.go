// Package main hosts the recproc CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into batch runs
// over a recording session directory, listings of what a run would do, run
// history queries, environment checks, and configuration scaffolding. It
// centralizes configuration resolution and logger setup so subcommands can
// focus on presentation.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
