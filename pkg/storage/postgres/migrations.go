package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a single schema change applied in order.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the full ordered schema history.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id VARCHAR(64) PRIMARY KEY,
					email VARCHAR(255) NOT NULL,
					username VARCHAR(255) NOT NULL,
					is_system_admin BOOLEAN NOT NULL DEFAULT FALSE,
					is_workspace_manager BOOLEAN NOT NULL DEFAULT FALSE,
					default_role VARCHAR(32) NOT NULL DEFAULT 'operator',
					status VARCHAR(32) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (LOWER(email));
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (username);
				CREATE INDEX IF NOT EXISTS idx_users_system_admin ON users (is_system_admin) WHERE is_system_admin;
			`,
		},
		{
			Version:     2,
			Description: "Create groups table",
			SQL: `
				CREATE TABLE IF NOT EXISTS groups (
					id VARCHAR(255) PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					kind VARCHAR(32) NOT NULL,
					status VARCHAR(32) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_groups_kind ON groups (kind);
			`,
		},
		{
			Version:     3,
			Description: "Create memberships table",
			SQL: `
				CREATE TABLE IF NOT EXISTS memberships (
					user_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					group_id VARCHAR(255) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					role VARCHAR(32) NOT NULL,
					status VARCHAR(32) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE (user_id, group_id)
				);
				CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships (user_id);
				CREATE INDEX IF NOT EXISTS idx_memberships_group ON memberships (group_id);
			`,
		},
		{
			Version:     4,
			Description: "Create agents table",
			SQL: `
				CREATE TABLE IF NOT EXISTS agents (
					id VARCHAR(64) PRIMARY KEY,
					group_id VARCHAR(255) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					endpoint VARCHAR(1024) NOT NULL DEFAULT '',
					status VARCHAR(32) NOT NULL DEFAULT 'active',
					created_by VARCHAR(64) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE (group_id, name)
				);
				CREATE INDEX IF NOT EXISTS idx_agents_group ON agents (group_id);
			`,
		},
		{
			Version:     5,
			Description: "Create flows table",
			SQL: `
				CREATE TABLE IF NOT EXISTS flows (
					id VARCHAR(64) PRIMARY KEY,
					group_id VARCHAR(255) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					definition TEXT NOT NULL DEFAULT '{}',
					status VARCHAR(32) NOT NULL DEFAULT 'draft',
					created_by VARCHAR(64) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE (group_id, name)
				);
				CREATE INDEX IF NOT EXISTS idx_flows_group ON flows (group_id);
				CREATE INDEX IF NOT EXISTS idx_flows_status ON flows (group_id, status);
			`,
		},
		{
			Version:     6,
			Description: "Create schedules table",
			SQL: `
				CREATE TABLE IF NOT EXISTS schedules (
					id VARCHAR(64) PRIMARY KEY,
					group_id VARCHAR(255) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					flow_id VARCHAR(64) NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
					cron_expr VARCHAR(255) NOT NULL,
					enabled BOOLEAN NOT NULL DEFAULT TRUE,
					next_run TIMESTAMP,
					created_by VARCHAR(64) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_schedules_group ON schedules (group_id);
				CREATE INDEX IF NOT EXISTS idx_schedules_flow ON schedules (flow_id);
				CREATE INDEX IF NOT EXISTS idx_schedules_due ON schedules (next_run) WHERE enabled;
			`,
		},
	}
}

// RunMigrations applies any pending migrations in version order. Each
// migration runs in its own transaction together with the bookkeeping row.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
