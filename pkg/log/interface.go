// Package log provides a structured logging interface for carprice estimators
// and the training run.
//
// The interface is slog-shaped: leveled methods taking a message followed by
// alternating key/value pairs. The default backend is zerolog (see
// NewZerologProvider); tests use TestLogger to capture output in memory.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("LinearRegression")
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 1000,
//	    log.FeaturesKey, 5,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Each method takes a message and optional key/value pairs. If the first field
// passed to Error is an error value, it is attached as the error of the record
// rather than as a key.
type Logger interface {
	// Debug logs per-fit detail that is normally disabled.
	Debug(msg string, fields ...any)

	// Info logs run and search milestones.
	Info(msg string, fields ...any)

	// Warn logs recoverable problems, such as a selector asked for too many features.
	Warn(msg string, fields ...any)

	// Error logs failures.
	//
	// Example:
	//   logger.Error("Model training failed",
	//       err,
	//       log.OperationKey, "fit",
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive fields:
	//
	//   if logger.Enabled(ctx, LevelDebug) {
	//       logger.Debug("coefficients", "coef", lr.Coef())
	//   }
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers that share one backend and level.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
