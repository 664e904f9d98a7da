// Package slogobs implements observability.Provider on top of log/slog.
// Spans and metrics are rendered as debug-level log records, so a single log
// stream carries the whole picture of a workflow run.
package slogobs
