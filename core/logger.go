package core

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger interface for structured logging
// Implementations can provide custom logging behavior (e.g., integration with logrus, zap, etc.)
type Logger interface {
	// Trace logs very verbose diagnostics, e.g. individual state transitions
	Trace(msg string, fields ...Field)

	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// errFieldKey is the key stumpy writes errors under.
const errFieldKey = "err"

// DefaultLogger writes JSON lines through a logiface logger backed by stumpy.
// Events above the configured LevelFilter are dropped before any field is built.
type DefaultLogger struct {
	filter LevelFilter
	logger *logiface.Logger[*stumpy.Event]
}

// NewDefaultLogger creates a DefaultLogger writing to stderr.
func NewDefaultLogger(filter LevelFilter) *DefaultLogger {
	return NewDefaultLoggerWithWriter(os.Stderr, filter)
}

// NewDefaultLoggerWithWriter creates a DefaultLogger writing to w.
func NewDefaultLoggerWithWriter(w io.Writer, filter LevelFilter) *DefaultLogger {
	return &DefaultLogger{
		filter: filter.OrDefault(),
		logger: stumpy.L.New(
			stumpy.L.WithStumpy(
				stumpy.WithWriter(w),
				stumpy.WithTimeField(`ts`),
			),
			stumpy.L.WithLevel(filter.logiface()),
		),
	}
}

// MaxLevel returns the filter this logger was built with.
func (l *DefaultLogger) MaxLevel() LevelFilter {
	return l.filter
}

func (l *DefaultLogger) Trace(msg string, fields ...Field) { l.log(LevelTrace, msg, fields) }
func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *DefaultLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

// log is the internal logging method
func (l *DefaultLogger) log(level Level, msg string, fields []Field) {
	if !l.filter.Enabled(level) {
		return
	}
	b := l.logger.Build(level.logiface())
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			b = b.Str(f.Key, v)
		case int:
			b = b.Int(f.Key, v)
		case int64:
			b = b.Int64(f.Key, v)
		case uint64:
			b = b.Uint64(f.Key, v)
		case bool:
			b = b.Bool(f.Key, v)
		case time.Duration:
			b = b.Dur(f.Key, v)
		case error:
			if f.Key == errFieldKey {
				b = b.Err(v)
			} else {
				b = b.Str(f.Key, v.Error())
			}
		case fmt.Stringer:
			b = b.Str(f.Key, v.String())
		default:
			b = b.Any(f.Key, v)
		}
	}
	b.Log(msg)
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Trace(msg string, fields ...Field) {}
func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
