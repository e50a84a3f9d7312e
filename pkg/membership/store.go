package membership

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/authz"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListActiveForUser returns the user's active team memberships, oldest first.
func (s *PostgresStore) ListActiveForUser(ctx context.Context, userID string) ([]*Membership, error) {
	query := `
		SELECT user_id, group_id, role, status, created_at, updated_at
		FROM memberships
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// ListForGroup returns every membership of a group, oldest first.
func (s *PostgresStore) ListForGroup(ctx context.Context, groupID string) ([]*Membership, error) {
	query := `
		SELECT user_id, group_id, role, status, created_at, updated_at
		FROM memberships
		WHERE group_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group memberships: %w", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// Upsert creates or reactivates a membership. The (user_id, group_id) unique
// key guarantees at most one row per pair regardless of racing writers.
func (s *PostgresStore) Upsert(ctx context.Context, m *Membership) error {
	if m.Status == "" {
		m.Status = StatusActive
	}
	query := `
		INSERT INTO memberships (user_id, group_id, role, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, group_id) DO UPDATE
		SET role = EXCLUDED.role, status = EXCLUDED.status, updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, m.UserID, m.GroupID, m.Role, m.Status).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	return nil
}

// UpdateRole changes an existing membership's role.
func (s *PostgresStore) UpdateRole(ctx context.Context, userID, groupID string, role authz.Role) error {
	query := `UPDATE memberships SET role = $1, updated_at = NOW() WHERE user_id = $2 AND group_id = $3`
	result, err := s.db.ExecContext(ctx, query, role, userID, groupID)
	if err != nil {
		return fmt.Errorf("failed to update membership role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes a membership row.
func (s *PostgresStore) Remove(ctx context.Context, userID, groupID string) error {
	query := `DELETE FROM memberships WHERE user_id = $1 AND group_id = $2`
	result, err := s.db.ExecContext(ctx, query, userID, groupID)
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMemberships(rows *sql.Rows) ([]*Membership, error) {
	var memberships []*Membership
	for rows.Next() {
		m := &Membership{}
		if err := rows.Scan(&m.UserID, &m.GroupID, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}
