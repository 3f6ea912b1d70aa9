// Package logging builds the slog loggers used by the daemon and CLI. It
// provides a human-oriented console handler, a JSON handler for log files,
// attribute helper constructors, and context-derived standard fields.
package logging
