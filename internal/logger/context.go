package logger

import (
	"context"
	"sync"
)

type contextKey struct{}

var loggerKey = contextKey{}

// defaultLogger is used when no logger has been attached to the context.
var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func init() {
	defaultLogger = New(nil)
}

// GetDefault returns the process-wide default logger.
func GetDefault() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

func getDefaultLogger() *Logger {
	return GetDefault()
}

// SetDefaultLogger replaces the process-wide default logger. Called once from
// main after the real configuration is loaded.
func SetDefaultLogger(l *Logger) {
	if l != nil {
		defaultLoggerMu.Lock()
		defaultLogger = l
		defaultLoggerMu.Unlock()
	}
}

// WithContext returns a context carrying this logger.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached to the context, or the default
// logger when none is attached.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*Logger); ok {
			return l
		}
	}
	return GetDefault()
}

// WithField returns a context whose logger carries one more field.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return FromContext(ctx).WithField(key, value).WithContext(ctx)
}

// WithFields returns a context whose logger carries the additional fields.
func WithFields(ctx context.Context, fields Fields) context.Context {
	return FromContext(ctx).WithFields(fields).WithContext(ctx)
}

// Setters for the standard tracing fields. Every log call below the setter
// picks the field up automatically.

// SetRequestID tags the context with the HTTP request ID.
func SetRequestID(ctx context.Context, id string) context.Context {
	return WithField(ctx, FieldRequestID, id)
}

// SetExecutionID tags the context with the execution grouping every batch of
// one run.
func SetExecutionID(ctx context.Context, id string) context.Context {
	return WithField(ctx, FieldExecutionID, id)
}

// SetBatchIndex tags the context with the batch position within its
// execution.
func SetBatchIndex(ctx context.Context, index int) context.Context {
	return WithField(ctx, FieldBatchIndex, index)
}

// SetProvider tags the context with the portal provider key.
func SetProvider(ctx context.Context, provider string) context.Context {
	return WithField(ctx, FieldProvider, provider)
}

// GetField reads a field back from the context's logger.
func GetField(ctx context.Context, key string) (interface{}, bool) {
	val, ok := FromContext(ctx).Data[key]
	return val, ok
}

// GetExecutionID reads the execution ID from the context's logger, empty when
// unset.
func GetExecutionID(ctx context.Context) string {
	val, ok := GetField(ctx, FieldExecutionID)
	if !ok {
		return ""
	}
	str, _ := val.(string)
	return str
}
