// Package config loads, normalizes, and validates twinfind configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and keeps every scan knob (traversal filters, hash choice,
// perceptual hash parameters, audio matching thresholds, cache location) in one
// Config value. Command-line flags are layered on top by the CLI.
package config
