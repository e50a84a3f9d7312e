package identity

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/observability"
)

// fakeUserStore is an in-memory Store for exercising provisioning and
// bootstrap logic without a database.
type fakeUserStore struct {
	byEmail map[string]*User
	byID    map[string]*User

	// createErrs and getErrs are consumed one entry per call, letting tests
	// inject a race loser's unique violation or a stale lookup on a specific
	// attempt.
	createErrs []error
	getErrs    []error

	promoted     []string
	promoteWins  bool
	lookupErr    error
	usernameErr  error
	nextSequence int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail:     map[string]*User{},
		byID:        map[string]*User{},
		promoteWins: true,
	}
}

func (f *fakeUserStore) add(u *User) *User {
	if u.ID == "" {
		f.nextSequence++
		u.ID = fmt.Sprintf("u%d", f.nextSequence)
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if u, ok := f.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*User, error) {
	if u, ok := f.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (f *fakeUserStore) Create(_ context.Context, user *User) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, exists := f.byEmail[user.Email]; exists {
		return fmt.Errorf("%w: email", ErrAlreadyExists)
	}
	f.add(user)
	return nil
}

func (f *fakeUserStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	if f.usernameErr != nil {
		return false, f.usernameErr
	}
	for _, u := range f.byEmail {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) CountUsers(_ context.Context) (int64, error) {
	return int64(len(f.byEmail)), nil
}

func (f *fakeUserStore) HasSystemAdmin(_ context.Context) (bool, error) {
	for _, u := range f.byEmail {
		if u.IsSystemAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) PromoteFirstPrincipal(_ context.Context, userID string) (bool, error) {
	f.promoted = append(f.promoted, userID)
	if !f.promoteWins {
		return false, nil
	}
	if u, ok := f.byID[userID]; ok {
		u.IsSystemAdmin = true
		u.IsWorkspaceManager = true
	}
	return true, nil
}

func (f *fakeUserStore) SetSystemAdmin(_ context.Context, userID string, grant bool) error {
	u, ok := f.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsSystemAdmin = grant
	return nil
}

func (f *fakeUserStore) ListUsers(_ context.Context, limit, offset int) ([]*User, error) {
	return nil, nil
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestProvisionerResolveOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("existing user is returned unchanged", func(t *testing.T) {
		store := newFakeUserStore()
		existing := store.add(&User{Email: "alice@abc.com", Username: "alice", Status: UserStatusActive})

		p := NewProvisioner(store, testLogger())
		user, created, err := p.ResolveOrCreate(ctx, "alice@abc.com")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, user.ID)
	})

	t.Run("new user is created with operator default role", func(t *testing.T) {
		store := newFakeUserStore()

		p := NewProvisioner(store, testLogger())
		user, created, err := p.ResolveOrCreate(ctx, "bob@abc.com")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "bob@abc.com", user.Email)
		assert.Equal(t, "bob", user.Username)
		assert.Equal(t, authz.RoleOperator, user.DefaultRole)
		assert.Equal(t, UserStatusActive, user.Status)
		assert.False(t, user.IsSystemAdmin)
	})

	t.Run("username collision falls back to domain suffix", func(t *testing.T) {
		store := newFakeUserStore()
		store.add(&User{Email: "bob@xyz.com", Username: "bob"})

		p := NewProvisioner(store, testLogger())
		user, created, err := p.ResolveOrCreate(ctx, "bob@abc.com")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "bob_abc_com", user.Username)
	})

	t.Run("domain suffix collision falls back to counter", func(t *testing.T) {
		store := newFakeUserStore()
		store.add(&User{Email: "bob@xyz.com", Username: "bob"})
		store.add(&User{Email: "bob@other.com", Username: "bob_abc_com"})

		p := NewProvisioner(store, testLogger())
		user, created, err := p.ResolveOrCreate(ctx, "bob@abc.com")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "bob_abc_com_2", user.Username)
	})

	t.Run("creation race returns the winner's row", func(t *testing.T) {
		store := newFakeUserStore()
		winner := store.add(&User{Email: "carol@abc.com", Username: "carol"})
		// The initial lookup misses, Create hits the concurrent winner's
		// unique violation, and the re-fetch finds the row the winner
		// inserted.
		store.getErrs = []error{ErrNotFound}
		store.createErrs = []error{fmt.Errorf("%w: email", ErrAlreadyExists)}

		p := NewProvisioner(store, testLogger())
		user, created, err := p.ResolveOrCreate(ctx, "carol@abc.com")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winner.ID, user.ID)
	})

	t.Run("store failure surfaces as StoreError", func(t *testing.T) {
		store := newFakeUserStore()
		store.lookupErr = fmt.Errorf("connection refused")

		p := NewProvisioner(store, testLogger())
		_, _, err := p.ResolveOrCreate(ctx, "dave@abc.com")
		require.Error(t, err)
		assert.True(t, authz.IsStoreUnavailable(err))
	})
}
