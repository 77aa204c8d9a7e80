// Package logging builds the slog loggers used across vgmdb. It maps
// config values onto handler construction: a compact console handler
// for interactive use, JSON for machine consumption, and an optional
// log-file copy inside the configured log directory.
package logging
