package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/flowdeck/flowdeck/pkg/tenant"
)

// ErrNotFound is returned when no group row matches.
var ErrNotFound = errors.New("groups: not found")

// ErrAlreadyExists is returned by Create when the id is taken.
var ErrAlreadyExists = errors.New("groups: already exists")

const pgUniqueViolation = "23505"

// Store is the group persistence adapter.
type Store interface {
	Create(ctx context.Context, g *tenant.Group) error
	EnsureGroup(ctx context.Context, g *tenant.Group) (bool, error)
	Get(ctx context.Context, id string) (*tenant.Group, error)
	List(ctx context.Context, kind tenant.Kind, limit, offset int) ([]*tenant.Group, error)
	UpdateStatus(ctx context.Context, id string, status tenant.Status) error
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new group row.
func (s *PostgresStore) Create(ctx context.Context, g *tenant.Group) error {
	if g.Status == "" {
		g.Status = tenant.StatusActive
	}

	query := `
		INSERT INTO groups (id, name, description, kind, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		g.ID, g.Name, g.Description, g.Kind, g.Status,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return fmt.Errorf("group %s: %w", g.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// EnsureGroup inserts the group if no row with its id exists. Concurrent
// callers race on the primary key and all converge on a single row; the
// return value reports whether this call inserted it.
func (s *PostgresStore) EnsureGroup(ctx context.Context, g *tenant.Group) (bool, error) {
	if g.Status == "" {
		g.Status = tenant.StatusActive
	}

	query := `
		INSERT INTO groups (id, name, description, kind, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		g.ID, g.Name, g.Description, g.Kind, g.Status,
	)
	if err != nil {
		return false, fmt.Errorf("failed to ensure group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// Get retrieves a group by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*tenant.Group, error) {
	query := `
		SELECT id, name, description, kind, status, created_at, updated_at
		FROM groups
		WHERE id = $1
	`
	g := &tenant.Group{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.Name, &g.Description, &g.Kind, &g.Status,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// List returns groups filtered by kind, or all kinds when kind is empty.
func (s *PostgresStore) List(ctx context.Context, kind tenant.Kind, limit, offset int) ([]*tenant.Group, error) {
	query := `
		SELECT id, name, description, kind, status, created_at, updated_at
		FROM groups
		WHERE ($1 = '' OR kind = $1)
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, string(kind), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Group
	for rows.Next() {
		g := &tenant.Group{}
		if err := rows.Scan(
			&g.ID, &g.Name, &g.Description, &g.Kind, &g.Status,
			&g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return out, nil
}

// UpdateStatus changes a group's lifecycle status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status tenant.Status) error {
	query := `UPDATE groups SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return nil
}
