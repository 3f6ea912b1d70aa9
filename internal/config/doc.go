// Package config loads, normalizes, and validates the TOML configuration
// that drives the poster pipeline daemon.
package config
