// Package logger provides the common logging interface shared by the
// stampede internal packages.
package logger

// Logger defines the logging interface used throughout stampede.
// Implementations must be safe for concurrent use and should handle log
// levels internally. *slog.Logger satisfies this interface.
type Logger interface {
	// Error logs error messages. Used for degraded store operations and
	// other unexpected failures.
	Error(msg string, args ...any)

	// Debug logs detailed diagnostic information about protocol steps:
	// lock acquisition, broadcast publication, and waiter behavior.
	// Debug messages should not include cached values.
	Debug(msg string, args ...any)
}
