// Package logger configures the process-wide slog JSON logger and carries
// request-scoped loggers through contexts, so handler, engine and store log
// lines of one request share its trace_id.
package logger
