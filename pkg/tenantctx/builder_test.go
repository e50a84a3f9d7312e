package tenantctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/identity"
	"github.com/flowdeck/flowdeck/pkg/membership"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/tenant"
)

type fakeIdentityStore struct {
	byEmail map[string]*identity.User
	byID    map[string]*identity.User
	nextSeq int
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{
		byEmail: map[string]*identity.User{},
		byID:    map[string]*identity.User{},
	}
}

func (f *fakeIdentityStore) add(u *identity.User) *identity.User {
	if u.ID == "" {
		f.nextSeq++
		u.ID = fmt.Sprintf("u%d", f.nextSeq)
	}
	if u.Status == "" {
		u.Status = identity.UserStatusActive
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u
}

func (f *fakeIdentityStore) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	if u, ok := f.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, identity.ErrNotFound
}

func (f *fakeIdentityStore) GetByID(_ context.Context, id string) (*identity.User, error) {
	if u, ok := f.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, identity.ErrNotFound
}

func (f *fakeIdentityStore) Create(_ context.Context, user *identity.User) error {
	if _, exists := f.byEmail[user.Email]; exists {
		return fmt.Errorf("%w: email", identity.ErrAlreadyExists)
	}
	f.add(user)
	return nil
}

func (f *fakeIdentityStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	for _, u := range f.byEmail {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeIdentityStore) CountUsers(_ context.Context) (int64, error) {
	return int64(len(f.byEmail)), nil
}

func (f *fakeIdentityStore) HasSystemAdmin(_ context.Context) (bool, error) {
	for _, u := range f.byEmail {
		if u.IsSystemAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeIdentityStore) PromoteFirstPrincipal(_ context.Context, userID string) (bool, error) {
	if hasAdmin, _ := f.HasSystemAdmin(context.Background()); hasAdmin {
		return false, nil
	}
	u, ok := f.byID[userID]
	if !ok {
		return false, nil
	}
	u.IsSystemAdmin = true
	u.IsWorkspaceManager = true
	return true, nil
}

func (f *fakeIdentityStore) SetSystemAdmin(_ context.Context, userID string, grant bool) error {
	u, ok := f.byID[userID]
	if !ok {
		return identity.ErrNotFound
	}
	u.IsSystemAdmin = grant
	return nil
}

func (f *fakeIdentityStore) ListUsers(_ context.Context, limit, offset int) ([]*identity.User, error) {
	return nil, nil
}

type fakeGroupStore struct{}

func (fakeGroupStore) EnsureGroup(_ context.Context, _ *tenant.Group) (bool, error) {
	return false, nil
}

type fakeMembershipStore struct {
	byUser  map[string][]*membership.Membership
	listErr error
}

func (f *fakeMembershipStore) ListActiveForUser(_ context.Context, userID string) ([]*membership.Membership, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byUser[userID], nil
}

func (f *fakeMembershipStore) ListForGroup(_ context.Context, groupID string) ([]*membership.Membership, error) {
	return nil, nil
}

func (f *fakeMembershipStore) Upsert(_ context.Context, m *membership.Membership) error { return nil }

func (f *fakeMembershipStore) UpdateRole(_ context.Context, userID, groupID string, role authz.Role) error {
	return nil
}

func (f *fakeMembershipStore) Remove(_ context.Context, userID, groupID string) error { return nil }

func newTestBuilder(users *fakeIdentityStore, memberships *fakeMembershipStore) *Builder {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	provisioner := identity.NewProvisioner(users, logger)
	bootstrap := identity.NewBootstrap(users, fakeGroupStore{}, logger)
	return NewBuilder(provisioner, bootstrap, memberships, logger)
}

func seedResolvedSystem(users *fakeIdentityStore) {
	// An elevated first principal already exists, so bootstrap stays quiet.
	users.add(&identity.User{Email: "root@abc.com", Username: "root", IsSystemAdmin: true, IsWorkspaceManager: true})
}

func TestBuilderBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to the oldest team membership", func(t *testing.T) {
		users := newFakeIdentityStore()
		seedResolvedSystem(users)
		alice := users.add(&identity.User{Email: "alice@abc.com", Username: "alice"})
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{
			alice.ID: {
				{UserID: alice.ID, GroupID: "marketing_abc", Role: authz.RoleEditor, Status: membership.StatusActive},
				{UserID: alice.ID, GroupID: "sales_xyz", Role: authz.RoleOperator, Status: membership.StatusActive},
			},
		}}

		tc, err := newTestBuilder(users, memberships).Build(ctx, "alice@abc.com", "", "")
		require.NoError(t, err)
		assert.Equal(t, "marketing_abc", tc.Primary())
		assert.Equal(t, authz.RoleEditor, tc.EffectiveRole())
		assert.Equal(t, "abc.com", tc.Domain())
		assert.False(t, tc.IsSystemAdmin())
		assert.Equal(t, []string{"marketing_abc", "sales_xyz", "user_alice_abc_com"}, tc.AuthorizedTenants())
	})

	t.Run("falls back to the personal tenant without memberships", func(t *testing.T) {
		users := newFakeIdentityStore()
		seedResolvedSystem(users)
		users.add(&identity.User{Email: "bob@abc.com", Username: "bob"})
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{}}

		tc, err := newTestBuilder(users, memberships).Build(ctx, "bob@abc.com", "", "")
		require.NoError(t, err)
		assert.Equal(t, "user_bob_abc_com", tc.Primary())
		assert.Equal(t, authz.RoleEditor, tc.EffectiveRole(), "plain user edits their own personal tenant")
	})

	t.Run("honors an authorized requested tenant", func(t *testing.T) {
		users := newFakeIdentityStore()
		seedResolvedSystem(users)
		alice := users.add(&identity.User{Email: "alice@abc.com", Username: "alice"})
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{
			alice.ID: {
				{UserID: alice.ID, GroupID: "marketing_abc", Role: authz.RoleEditor, Status: membership.StatusActive},
				{UserID: alice.ID, GroupID: "sales_xyz", Role: authz.RoleOperator, Status: membership.StatusActive},
			},
		}}

		tc, err := newTestBuilder(users, memberships).Build(ctx, "alice@abc.com", "", "sales_xyz")
		require.NoError(t, err)
		assert.Equal(t, "sales_xyz", tc.Primary())
		assert.Equal(t, authz.RoleOperator, tc.EffectiveRole())
	})

	t.Run("rejects a tenant outside the authorized set", func(t *testing.T) {
		users := newFakeIdentityStore()
		seedResolvedSystem(users)
		users.add(&identity.User{Email: "alice@abc.com", Username: "alice"})
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{}}

		_, err := newTestBuilder(users, memberships).Build(ctx, "alice@abc.com", "", "finance_abc")
		require.Error(t, err)
		assert.True(t, authz.IsAccessDenied(err))
		assert.Contains(t, err.Error(), "finance_abc")
		assert.NotContains(t, err.Error(), "user_alice_abc_com", "the denial must not reveal authorized tenants")
	})

	t.Run("system admins still need the tenant in their authorized set", func(t *testing.T) {
		users := newFakeIdentityStore()
		users.add(&identity.User{Email: "root@abc.com", Username: "root", IsSystemAdmin: true, IsWorkspaceManager: true})
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{}}

		_, err := newTestBuilder(users, memberships).Build(ctx, "root@abc.com", "", "marketing_abc")
		require.Error(t, err)
		assert.True(t, authz.IsAccessDenied(err))
	})

	t.Run("system admin role wins inside an authorized tenant", func(t *testing.T) {
		users := newFakeIdentityStore()
		root := users.add(&identity.User{Email: "root@abc.com", Username: "root", IsSystemAdmin: true, IsWorkspaceManager: true})
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{
			root.ID: {{UserID: root.ID, GroupID: "marketing_abc", Role: authz.RoleOperator, Status: membership.StatusActive}},
		}}

		tc, err := newTestBuilder(users, memberships).Build(ctx, "root@abc.com", "", "marketing_abc")
		require.NoError(t, err)
		assert.Equal(t, authz.RoleAdmin, tc.EffectiveRole(), "system admin overrides the membership role")
		assert.True(t, tc.IsSystemAdmin())
	})

	t.Run("empty email is unauthenticated", func(t *testing.T) {
		users := newFakeIdentityStore()
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{}}

		_, err := newTestBuilder(users, memberships).Build(ctx, "   ", "", "")
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("first user is bootstrapped to system admin", func(t *testing.T) {
		users := newFakeIdentityStore()
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{}}

		tc, err := newTestBuilder(users, memberships).Build(ctx, "founder@abc.com", "", "")
		require.NoError(t, err)
		assert.True(t, tc.IsSystemAdmin())
		assert.Equal(t, authz.RoleAdmin, tc.EffectiveRole(), "bootstrap elevation applies within the same request")
		assert.Equal(t, "user_founder_abc_com", tc.Primary())
	})

	t.Run("second user is not elevated", func(t *testing.T) {
		users := newFakeIdentityStore()
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{}}
		builder := newTestBuilder(users, memberships)

		_, err := builder.Build(ctx, "founder@abc.com", "", "")
		require.NoError(t, err)

		tc, err := builder.Build(ctx, "late@abc.com", "", "")
		require.NoError(t, err)
		assert.False(t, tc.IsSystemAdmin())
		assert.Equal(t, authz.RoleEditor, tc.EffectiveRole())
	})

	t.Run("membership store failure surfaces as StoreError", func(t *testing.T) {
		users := newFakeIdentityStore()
		seedResolvedSystem(users)
		users.add(&identity.User{Email: "alice@abc.com", Username: "alice"})
		memberships := &fakeMembershipStore{listErr: errors.New("connection refused")}

		_, err := newTestBuilder(users, memberships).Build(ctx, "alice@abc.com", "", "")
		require.Error(t, err)
		assert.True(t, authz.IsStoreUnavailable(err))
	})

	t.Run("cancelled context is not installed", func(t *testing.T) {
		users := newFakeIdentityStore()
		seedResolvedSystem(users)
		users.add(&identity.User{Email: "alice@abc.com", Username: "alice"})
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{}}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newTestBuilder(users, memberships).Build(cancelled, "alice@abc.com", "", "")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("access token is carried through opaquely", func(t *testing.T) {
		users := newFakeIdentityStore()
		seedResolvedSystem(users)
		users.add(&identity.User{Email: "alice@abc.com", Username: "alice"})
		memberships := &fakeMembershipStore{byUser: map[string][]*membership.Membership{}}

		tc, err := newTestBuilder(users, memberships).Build(ctx, "alice@abc.com", "tok-123", "")
		require.NoError(t, err)
		assert.Equal(t, "tok-123", tc.AccessToken())
	})
}

func TestInstallAndFromContext(t *testing.T) {
	tc := &Context{userID: "u1", email: "alice@abc.com", primary: "marketing_abc", role: authz.RoleEditor,
		authorized: map[string]struct{}{"marketing_abc": {}}, accessToken: "tok"}

	ctx := Install(context.Background(), tc)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, tc, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
