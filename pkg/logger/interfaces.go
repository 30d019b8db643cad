package logger

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	SetLevel(level string)
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	With(fields ...Field) Logger

	// Event emits a structured business-outcome record: a fixed event kind
	// (e.g. "resolve_cycle", "activation_summary") plus an arbitrary payload.
	// This is how the core satisfies the consumed StructuredLogger contract
	// without coupling to any particular human-readable rendering.
	Event(kind string, payload map[string]interface{})
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// LogLevel represents the logging level
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)
