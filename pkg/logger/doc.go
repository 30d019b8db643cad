// Package logger provides the structured logging capabilities shared by the
// constraint activation core and its surrounding CLI glue.
//
// # Logger Interface
//
// The Logger interface defines the contract for all logging implementations:
//
//	type Logger interface {
//	    Debug(msg string, fields ...interface{})
//	    Info(msg string, fields ...interface{})
//	    Warn(msg string, fields ...interface{})
//	    Error(msg string, fields ...interface{})
//	    SetLevel(level string)
//	    WithField(key string, value interface{}) Logger
//	    WithFields(fields map[string]interface{}) Logger
//	    With(fields ...Field) Logger
//	    Event(kind string, payload map[string]interface{})
//	}
//
// # Log Levels
//
// Supported log levels in order of severity: DEBUG, INFO, WARN, ERROR.
//
// # Structured Events
//
// The core logs business outcomes (resolve_ok, resolve_cycle,
// resolve_not_found, resolve_error, activation_budget_exceeded,
// activation_summary) as structured events
// rather than free text. Event emits a record with a fixed event kind and an
// arbitrary payload map, independent of the human-readable rendering that the
// injection formatter produces:
//
//	log.Event("resolve_cycle", map[string]interface{}{
//	    "chain": []string{"X", "Y", "X"},
//	})
//
// # Contextual Logging
//
// Create child loggers with persistent fields via With; all entries logged
// through the child carry the parent's fields plus its own.
//
// # Configuration
//
// NewSimpleLogger starts at INFO and does not read the environment.
// GetLogLevel returns the LOG_LEVEL environment variable (debug, info, warn,
// error), or "INFO" when it is unset; its result can be passed to SetLevel.
package logger
