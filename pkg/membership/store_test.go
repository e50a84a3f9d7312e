package membership

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/authz"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func membershipRows(memberships ...*Membership) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"user_id", "group_id", "role", "status", "created_at", "updated_at"})
	now := time.Now()
	for _, m := range memberships {
		rows.AddRow(m.UserID, m.GroupID, m.Role, m.Status, now, now)
	}
	return rows
}

func TestPostgresStoreListActiveForUser(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM memberships`).
		WithArgs("u1").
		WillReturnRows(membershipRows(
			&Membership{UserID: "u1", GroupID: "marketing_abc", Role: authz.RoleEditor, Status: StatusActive},
			&Membership{UserID: "u1", GroupID: "sales_xyz", Role: authz.RoleOperator, Status: StatusActive},
		))

	memberships, err := store.ListActiveForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, memberships, 2)
	assert.Equal(t, "marketing_abc", memberships[0].GroupID, "oldest membership first")
	assert.Equal(t, authz.RoleOperator, memberships[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpsert(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO memberships`).
		WithArgs("u1", "marketing_abc", authz.RoleEditor, StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	m := &Membership{UserID: "u1", GroupID: "marketing_abc", Role: authz.RoleEditor}
	require.NoError(t, store.Upsert(context.Background(), m))
	assert.Equal(t, StatusActive, m.Status, "status defaults to active")
	assert.Equal(t, now, m.CreatedAt)
}

func TestPostgresStoreUpdateRole(t *testing.T) {
	t.Run("existing membership", func(t *testing.T) {
		db, mock := setupMockDB(t)
		store := NewPostgresStore(db)

		mock.ExpectExec(`UPDATE memberships SET role`).
			WithArgs(authz.RoleAdmin, "u1", "marketing_abc").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.UpdateRole(context.Background(), "u1", "marketing_abc", authz.RoleAdmin))
	})

	t.Run("no matching row", func(t *testing.T) {
		db, mock := setupMockDB(t)
		store := NewPostgresStore(db)

		mock.ExpectExec(`UPDATE memberships SET role`).
			WithArgs(authz.RoleAdmin, "u1", "nowhere").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.UpdateRole(context.Background(), "u1", "nowhere", authz.RoleAdmin), ErrNotFound)
	})
}

func TestPostgresStoreRemove(t *testing.T) {
	t.Run("existing membership", func(t *testing.T) {
		db, mock := setupMockDB(t)
		store := NewPostgresStore(db)

		mock.ExpectExec(`DELETE FROM memberships`).
			WithArgs("u1", "marketing_abc").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Remove(context.Background(), "u1", "marketing_abc"))
	})

	t.Run("no matching row", func(t *testing.T) {
		db, mock := setupMockDB(t)
		store := NewPostgresStore(db)

		mock.ExpectExec(`DELETE FROM memberships`).
			WithArgs("u1", "nowhere").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.Remove(context.Background(), "u1", "nowhere"), ErrNotFound)
	})
}
