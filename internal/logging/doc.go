// Package logging assembles structured slog loggers and formatting helpers.
//
// It owns the console and JSON handlers, the optional dated log file with
// retention pruning, and context-aware helpers that tag lines with album,
// snatch and correlation identifiers. Warnings and errors go through
// WarnWithContext and ErrorWithContext so every line carries an event type and
// an operator hint.
package logging
