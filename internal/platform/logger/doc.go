// Package logger configures the process-wide slog logger and carries a
// request-scoped one through context.Context.
package logger
