// Package config loads, normalizes, and validates the TOML configuration for
// the mediaflow daemon and CLI.
package config
