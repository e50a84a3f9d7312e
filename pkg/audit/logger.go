package audit

import (
	"context"
	"time"

	"github.com/flowdeck/flowdeck/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records one audit event
	Log(ctx context.Context, event *Event) error

	// Close flushes and closes the underlying sink
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger from context, or a no-op logger
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NopLogger{}
}

// Record fills in the timestamp and request id from ctx and hands the event
// to the context's logger. Convenience used by middleware and handlers.
func Record(ctx context.Context, event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}
	// Audit failures are deliberately swallowed here; sinks are responsible
	// for reporting their own write errors.
	_ = FromContext(ctx).Log(ctx, event)
}

// NopLogger drops every event. Used when auditing is disabled and in tests.
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                { return nil }

// MultiLogger fans events out to several sinks. Log returns the first error
// but still attempts every sink.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var firstErr error
	for _, l := range m.loggers {
		if err := l.Log(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiLogger) Close() error {
	var firstErr error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
