package schedules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new schedule row.
func (s *PostgresStore) Create(ctx context.Context, sched *Schedule) error {
	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}

	query := `
		INSERT INTO schedules (id, group_id, flow_id, cron_expr, enabled, next_run, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		sched.ID, sched.GroupID, sched.FlowID, sched.CronExpr, sched.Enabled, sched.NextRun, sched.CreatedBy,
	).Scan(&sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

// Get retrieves a schedule by id without tenant filtering; the service layer
// applies the visibility policy.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Schedule, error) {
	query := `
		SELECT id, group_id, flow_id, cron_expr, enabled, next_run, created_by, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`
	sched := &Schedule{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sched.ID, &sched.GroupID, &sched.FlowID, &sched.CronExpr, &sched.Enabled,
		&sched.NextRun, &sched.CreatedBy, &sched.CreatedAt, &sched.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return sched, nil
}

// ListForGroup returns the tenant's schedules.
func (s *PostgresStore) ListForGroup(ctx context.Context, groupID string, limit, offset int) ([]*Schedule, error) {
	query := `
		SELECT id, group_id, flow_id, cron_expr, enabled, next_run, created_by, created_at, updated_at
		FROM schedules
		WHERE group_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// Update rewrites the schedule's mutable fields.
func (s *PostgresStore) Update(ctx context.Context, sched *Schedule) error {
	query := `
		UPDATE schedules
		SET cron_expr = $2, enabled = $3, next_run = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		sched.ID, sched.CronExpr, sched.Enabled, sched.NextRun,
	).Scan(&sched.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("schedule %s: %w", sched.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule row.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListDue returns enabled schedules whose next run is at or before now.
func (s *PostgresStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*Schedule, error) {
	query := `
		SELECT id, group_id, flow_id, cron_expr, enabled, next_run, created_by, created_at, updated_at
		FROM schedules
		WHERE enabled AND next_run IS NOT NULL AND next_run <= $1
		ORDER BY next_run
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// SetNextRun advances a schedule's next run time.
func (s *PostgresStore) SetNextRun(ctx context.Context, id string, next time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET next_run = $2, updated_at = NOW() WHERE id = $1`, id, next)
	if err != nil {
		return fmt.Errorf("failed to set next run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanSchedules(rows *sql.Rows) ([]*Schedule, error) {
	var out []*Schedule
	for rows.Next() {
		sched := &Schedule{}
		if err := rows.Scan(
			&sched.ID, &sched.GroupID, &sched.FlowID, &sched.CronExpr, &sched.Enabled,
			&sched.NextRun, &sched.CreatedBy, &sched.CreatedAt, &sched.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		out = append(out, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}
	return out, nil
}
