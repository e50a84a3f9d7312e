package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, username, is_system_admin, is_workspace_manager, default_role, status, created_at, updated_at`

// GetByEmail retrieves a user by email. Comparison is case-insensitive.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves a user by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// Create inserts a new user. Uniqueness violations on email or username are
// reported as ErrAlreadyExists so the caller can re-fetch the concurrent
// winner's row.
func (s *PostgresStore) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Status == "" {
		user.Status = UserStatusActive
	}
	query := `
		INSERT INTO users (id, email, username, is_system_admin, is_workspace_manager, default_role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Username,
		user.IsSystemAdmin, user.IsWorkspaceManager, user.DefaultRole, user.Status).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, pqErr.Constraint)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UsernameTaken reports whether a username is already in use.
func (s *PostgresStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	if err := s.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// CountUsers returns the total number of user rows.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// HasSystemAdmin reports whether any system admin exists anywhere.
func (s *PostgresStore) HasSystemAdmin(ctx context.Context) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE is_system_admin)`
	if err := s.db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for system admin: %w", err)
	}
	return exists, nil
}

// PromoteFirstPrincipal elevates userID iff no system admin exists yet. The
// guard and the write are one statement, so under N concurrent first-request
// races exactly one caller observes a row change.
func (s *PostgresStore) PromoteFirstPrincipal(ctx context.Context, userID string) (bool, error) {
	query := `
		UPDATE users
		SET is_system_admin = TRUE, is_workspace_manager = TRUE, updated_at = NOW()
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM users WHERE is_system_admin)
	`
	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("failed to promote first principal: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// SetSystemAdmin grants or revokes the system-wide admin flag.
func (s *PostgresStore) SetSystemAdmin(ctx context.Context, userID string, grant bool) error {
	query := `UPDATE users SET is_system_admin = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, grant, userID)
	if err != nil {
		return fmt.Errorf("failed to set system admin: %w", err)
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

// ListUsers returns users ordered by creation time.
func (s *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := s.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *PostgresStore) scanUser(row rowScanner) (*User, error) {
	user, err := s.scanUserRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

func (s *PostgresStore) scanUserRow(row rowScanner) (*User, error) {
	user := &User{}
	var createdAt, updatedAt time.Time
	err := row.Scan(
		&user.ID, &user.Email, &user.Username,
		&user.IsSystemAdmin, &user.IsWorkspaceManager,
		&user.DefaultRole, &user.Status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return user, nil
}
