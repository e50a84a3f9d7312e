package agents

import (
	"context"
	"database/sql"
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

// Create inserts a new agent row.
func (s *PostgresStore) Create(ctx context.Context, a *Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AgentStatusActive
	}

	query := `
		INSERT INTO agents (id, group_id, name, description, endpoint, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		a.ID, a.GroupID, a.Name, a.Description, a.Endpoint, a.Status, a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return fmt.Errorf("agent %s: %w", a.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// Get retrieves an agent by id without tenant filtering; the service layer
// applies the visibility policy.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Agent, error) {
	query := `
		SELECT id, group_id, name, description, endpoint, status, created_by, created_at, updated_at
		FROM agents
		WHERE id = $1
	`
	a := &Agent{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.GroupID, &a.Name, &a.Description, &a.Endpoint,
		&a.Status, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return a, nil
}

// ListForGroup returns the tenant's agents.
func (s *PostgresStore) ListForGroup(ctx context.Context, groupID string, limit, offset int) ([]*Agent, error) {
	query := `
		SELECT id, group_id, name, description, endpoint, status, created_by, created_at, updated_at
		FROM agents
		WHERE group_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var out []*Agent
	for rows.Next() {
		a := &Agent{}
		if err := rows.Scan(
			&a.ID, &a.GroupID, &a.Name, &a.Description, &a.Endpoint,
			&a.Status, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}
	return out, nil
}

// Update rewrites the agent's mutable fields.
func (s *PostgresStore) Update(ctx context.Context, a *Agent) error {
	query := `
		UPDATE agents
		SET name = $2, description = $3, endpoint = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		a.ID, a.Name, a.Description, a.Endpoint, a.Status,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("agent %s: %w", a.ID, ErrNotFound)
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return fmt.Errorf("agent %s: %w", a.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return nil
}

// Delete removes an agent row.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	return nil
}
