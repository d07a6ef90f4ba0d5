// Package config loads, validates, and normalizes the TOML configuration for
// the chorus daemon and CLI.
package config
