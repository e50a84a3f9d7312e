package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestNewDBLogger(t *testing.T) {
	t.Run("creates the table", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_logs").
			WillReturnResult(sqlmock.NewResult(0, 0))

		logger, err := NewDBLogger(db)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil db is rejected", func(t *testing.T) {
		_, err := NewDBLogger(nil)
		assert.Error(t, err)
	})
}

func TestDBLoggerLog(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &Event{
		Timestamp: time.Now(),
		EventType: EventTypeTenantDenied,
		Status:    EventStatusDenied,
		Email:     "alice@abc.com",
		GroupID:   "finance_abc",
		Message:   "requested tenant not in authorized set",
	}
	require.NoError(t, logger.Log(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	t.Run("fills the timestamp and forwards to the context logger", func(t *testing.T) {
		sink := &captureLogger{}
		ctx := WithLogger(context.Background(), sink)

		Record(ctx, &Event{EventType: EventTypeContextBuilt, Status: EventStatusSuccess})

		require.Len(t, sink.events, 1)
		assert.False(t, sink.events[0].Timestamp.IsZero())
		assert.Equal(t, EventTypeContextBuilt, sink.events[0].EventType)
	})

	t.Run("no logger in context is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			Record(context.Background(), &Event{EventType: EventTypeContextBuilt})
		})
	})
}

type captureLogger struct {
	events []*Event
}

func (c *captureLogger) Log(_ context.Context, event *Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *captureLogger) Close() error { return nil }

func TestMultiLogger(t *testing.T) {
	first := &captureLogger{}
	second := &captureLogger{}
	multi := NewMultiLogger(first, second)

	require.NoError(t, multi.Log(context.Background(), &Event{EventType: EventTypeMemberAdded}))
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
	assert.NoError(t, multi.Close())
}
