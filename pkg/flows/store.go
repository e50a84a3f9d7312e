package flows

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new flow row.
func (s *PostgresStore) Create(ctx context.Context, f *Flow) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = FlowStatusDraft
	}
	if f.Definition == "" {
		f.Definition = "{}"
	}
	if !json.Valid([]byte(f.Definition)) {
		return fmt.Errorf("flows: definition is not valid JSON")
	}

	query := `
		INSERT INTO flows (id, group_id, name, description, definition, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		f.ID, f.GroupID, f.Name, f.Description, f.Definition, f.Status, f.CreatedBy,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return fmt.Errorf("flow %s: %w", f.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create flow: %w", err)
	}
	return nil
}

// Get retrieves a flow by id without tenant filtering; the service layer
// applies the visibility policy.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Flow, error) {
	query := `
		SELECT id, group_id, name, description, definition, status, created_by, created_at, updated_at
		FROM flows
		WHERE id = $1
	`
	f := &Flow{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.GroupID, &f.Name, &f.Description, &f.Definition,
		&f.Status, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("flow %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}
	return f, nil
}

// ListForGroup returns the tenant's flows, optionally filtered by status.
func (s *PostgresStore) ListForGroup(ctx context.Context, groupID string, status FlowStatus, limit, offset int) ([]*Flow, error) {
	query := `
		SELECT id, group_id, name, description, definition, status, created_by, created_at, updated_at
		FROM flows
		WHERE group_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at
		LIMIT $3 OFFSET $4
	`
	rows, err := s.db.QueryContext(ctx, query, groupID, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	var out []*Flow
	for rows.Next() {
		f := &Flow{}
		if err := rows.Scan(
			&f.ID, &f.GroupID, &f.Name, &f.Description, &f.Definition,
			&f.Status, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flows: %w", err)
	}
	return out, nil
}

// Update rewrites the flow's mutable fields.
func (s *PostgresStore) Update(ctx context.Context, f *Flow) error {
	if f.Definition != "" && !json.Valid([]byte(f.Definition)) {
		return fmt.Errorf("flows: definition is not valid JSON")
	}

	query := `
		UPDATE flows
		SET name = $2, description = $3, definition = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		f.ID, f.Name, f.Description, f.Definition, f.Status,
	).Scan(&f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("flow %s: %w", f.ID, ErrNotFound)
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return fmt.Errorf("flow %s: %w", f.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update flow: %w", err)
	}
	return nil
}

// Delete removes a flow row; schedules referencing it cascade.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("flow %s: %w", id, ErrNotFound)
	}
	return nil
}
