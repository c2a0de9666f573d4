package types

// Logger defines the structured logging interface used throughout courier.
//
// The method set is compatible with zap.SugaredLogger, so a sugared zap
// logger can be passed directly. Messages take alternating key/value pairs.
//
// Implementations must be safe for concurrent use.
type Logger interface {
	// Debug logs a message at debug level with key/value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at info level with key/value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at warning level with key/value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at error level with key/value pairs.
	Error(msg string, keysAndValues ...any)
}
