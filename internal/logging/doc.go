// Package logging builds the slog loggers used across the daemon and CLI,
// with a console handler for interactive use and a JSON handler for
// machine-readable output. It also centralizes the structured field names
// components share so log queries stay consistent.
package logging
