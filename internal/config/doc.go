// Package config loads, normalizes, and validates the TOML configuration
// used by the loom daemon and CLI.
//
// Load resolves the config file (explicit path, ~/.config/loom/config.toml,
// or ./loom.toml), merges it over Default(), expands ~ in path fields, and
// validates the result. A missing file is not an error; defaults apply.
package config
