package logger

import (
	"context"
)

// Entry carries metric fields (duration_ms, count, status, ...) that are
// attached to a single log line rather than propagated through the context.
type Entry struct {
	logger *Logger
	fields Fields
}

// With starts an Entry with the given metric fields.
// Example: logger.With(logger.Fields{logger.FieldCount: n}).Info(ctx, "Batch planned")
func With(fields Fields) *Entry {
	return &Entry{logger: getDefaultLogger(), fields: fields}
}

// With merges more fields into the entry, returning a new one.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{logger: e.logger, fields: merged}
}

// WithField adds a single field to the entry.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

// WithDuration adds a duration_ms field.
func (e *Entry) WithDuration(ms int64) *Entry { return e.WithField(FieldDurationMs, ms) }

// WithCount adds a count field.
func (e *Entry) WithCount(count int) *Entry { return e.WithField(FieldCount, count) }

// WithStatus adds a status field.
func (e *Entry) WithStatus(status string) *Entry { return e.WithField(FieldStatus, status) }

// resolve picks the context logger when a context is given, so metric lines
// still carry execution_id and friends.
func (e *Entry) resolve(ctx context.Context) *Logger {
	if ctx != nil {
		return FromContext(ctx)
	}
	return e.logger
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).WithFields(e.fields).Debugf(format, args...)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).WithFields(e.fields).Infof(format, args...)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).WithFields(e.fields).Warnf(format, args...)
}

func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).WithFields(e.fields).Errorf(format, args...)
}
