// Package config loads, validates, and normalizes the TOML configuration for
// the stitcher pipeline. Defaults live in defaults.go; the embedded sample
// config documents every knob.
package config
