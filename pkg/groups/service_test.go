package groups

import (
	"context"
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

type fakeGroupStore struct {
	groups map[string]*tenant.Group
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{groups: map[string]*tenant.Group{}}
}

func (f *fakeGroupStore) Create(_ context.Context, g *tenant.Group) error {
	if _, exists := f.groups[g.ID]; exists {
		return ErrAlreadyExists
	}
	f.groups[g.ID] = g
	return nil
}

func (f *fakeGroupStore) EnsureGroup(_ context.Context, g *tenant.Group) (bool, error) {
	if _, exists := f.groups[g.ID]; exists {
		return false, nil
	}
	f.groups[g.ID] = g
	return true, nil
}

func (f *fakeGroupStore) Get(_ context.Context, id string) (*tenant.Group, error) {
	if g, ok := f.groups[id]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}

func (f *fakeGroupStore) List(_ context.Context, kind tenant.Kind, limit, offset int) ([]*tenant.Group, error) {
	var out []*tenant.Group
	for _, g := range f.groups {
		if g.Kind == kind {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupStore) UpdateStatus(_ context.Context, id string, status tenant.Status) error {
	g, ok := f.groups[id]
	if !ok {
		return ErrNotFound
	}
	g.Status = status
	return nil
}

type fakeMemberships struct {
	upserts  []*membership.Membership
	removed  [][2]string
	byGroup  map[string][]*membership.Membership
	roleErr  error
	roleSets [][3]string
}

func (f *fakeMemberships) ListActiveForUser(_ context.Context, userID string) ([]*membership.Membership, error) {
	return nil, nil
}

func (f *fakeMemberships) ListForGroup(_ context.Context, groupID string) ([]*membership.Membership, error) {
	return f.byGroup[groupID], nil
}

func (f *fakeMemberships) Upsert(_ context.Context, m *membership.Membership) error {
	f.upserts = append(f.upserts, m)
	return nil
}

func (f *fakeMemberships) UpdateRole(_ context.Context, userID, groupID string, role authz.Role) error {
	if f.roleErr != nil {
		return f.roleErr
	}
	f.roleSets = append(f.roleSets, [3]string{userID, groupID, string(role)})
	return nil
}

func (f *fakeMemberships) Remove(_ context.Context, userID, groupID string) error {
	f.removed = append(f.removed, [2]string{userID, groupID})
	return nil
}

type fakeUsers struct {
	ids map[string]bool
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	return nil, identity.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*identity.User, error) {
	if f.ids[id] {
		return &identity.User{ID: id}, nil
	}
	return nil, identity.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, _ *identity.User) error { return nil }

func (f *fakeUsers) UsernameTaken(_ context.Context, _ string) (bool, error) { return false, nil }

func (f *fakeUsers) CountUsers(_ context.Context) (int64, error) { return 0, nil }

func (f *fakeUsers) HasSystemAdmin(_ context.Context) (bool, error) { return false, nil }

func (f *fakeUsers) PromoteFirstPrincipal(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (f *fakeUsers) SetSystemAdmin(_ context.Context, _ string, _ bool) error { return nil }

func (f *fakeUsers) ListUsers(_ context.Context, _, _ int) ([]*identity.User, error) {
	return nil, nil
}

func newTestService(store *fakeGroupStore, memberships *fakeMemberships, users *fakeUsers) *Service {
	if memberships == nil {
		memberships = &fakeMemberships{byGroup: map[string][]*membership.Membership{}}
	}
	if users == nil {
		users = &fakeUsers{ids: map[string]bool{}}
	}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewService(store, memberships, users, logger)
}

func TestServiceCreateTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the id from the domain", func(t *testing.T) {
		store := newFakeGroupStore()
		svc := newTestService(store, nil, nil)

		g, err := svc.CreateTeam(ctx, "", "Marketing.ABC.com", "Marketing", "")
		require.NoError(t, err)
		assert.Equal(t, "marketing_abc_com", g.ID)
		assert.Equal(t, tenant.KindTeam, g.Kind)
		assert.Equal(t, tenant.StatusActive, g.Status)
	})

	t.Run("explicit id is lowercased", func(t *testing.T) {
		store := newFakeGroupStore()
		svc := newTestService(store, nil, nil)

		g, err := svc.CreateTeam(ctx, " Sales-XYZ ", "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "sales-xyz", g.ID)
		assert.Equal(t, "sales-xyz", g.Name, "name defaults to the id")
	})

	t.Run("personal namespace is reserved", func(t *testing.T) {
		store := newFakeGroupStore()
		svc := newTestService(store, nil, nil)

		_, err := svc.CreateTeam(ctx, "user_alice_abc_com", "", "", "")
		assert.ErrorIs(t, err, ErrReservedID)
	})

	t.Run("requires an id or domain", func(t *testing.T) {
		store := newFakeGroupStore()
		svc := newTestService(store, nil, nil)

		_, err := svc.CreateTeam(ctx, "", "", "Nameless", "")
		assert.Error(t, err)
	})

	t.Run("duplicate id", func(t *testing.T) {
		store := newFakeGroupStore()
		svc := newTestService(store, nil, nil)

		_, err := svc.CreateTeam(ctx, "marketing_abc", "", "", "")
		require.NoError(t, err)
		_, err = svc.CreateTeam(ctx, "marketing_abc", "", "", "")
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestServiceGet(t *testing.T) {
	ctx := context.Background()

	t.Run("existing team", func(t *testing.T) {
		store := newFakeGroupStore()
		store.groups["marketing_abc"] = &tenant.Group{ID: "marketing_abc", Kind: tenant.KindTeam, Status: tenant.StatusActive}
		svc := newTestService(store, nil, nil)

		g, err := svc.Get(ctx, "marketing_abc")
		require.NoError(t, err)
		assert.Equal(t, tenant.KindTeam, g.Kind)
	})

	t.Run("personal tenant without a row is synthesized", func(t *testing.T) {
		svc := newTestService(newFakeGroupStore(), nil, nil)

		g, err := svc.Get(ctx, "user_alice_abc_com")
		require.NoError(t, err)
		assert.Equal(t, tenant.KindPersonal, g.Kind)
		assert.Equal(t, tenant.StatusActive, g.Status)
	})

	t.Run("unknown team", func(t *testing.T) {
		svc := newTestService(newFakeGroupStore(), nil, nil)

		_, err := svc.Get(ctx, "nowhere")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestServiceRoster(t *testing.T) {
	ctx := context.Background()

	setup := func() (*Service, *fakeMemberships) {
		store := newFakeGroupStore()
		store.groups["marketing_abc"] = &tenant.Group{ID: "marketing_abc", Kind: tenant.KindTeam, Status: tenant.StatusActive}
		memberships := &fakeMemberships{byGroup: map[string][]*membership.Membership{}}
		users := &fakeUsers{ids: map[string]bool{"u1": true}}
		return newTestService(store, memberships, users), memberships
	}

	t.Run("add member", func(t *testing.T) {
		svc, memberships := setup()

		require.NoError(t, svc.AddMember(ctx, "marketing_abc", "u1", authz.RoleEditor))
		require.Len(t, memberships.upserts, 1)
		assert.Equal(t, membership.StatusActive, memberships.upserts[0].Status)
		assert.Equal(t, authz.RoleEditor, memberships.upserts[0].Role)
	})

	t.Run("add member rejects unknown role", func(t *testing.T) {
		svc, memberships := setup()

		err := svc.AddMember(ctx, "marketing_abc", "u1", authz.Role("owner"))
		assert.ErrorIs(t, err, ErrInvalidRole)
		assert.Empty(t, memberships.upserts)
	})

	t.Run("add member rejects unknown user", func(t *testing.T) {
		svc, _ := setup()

		err := svc.AddMember(ctx, "marketing_abc", "ghost", authz.RoleEditor)
		assert.ErrorIs(t, err, identity.ErrNotFound)
	})

	t.Run("roster operations refuse personal tenants", func(t *testing.T) {
		store := newFakeGroupStore()
		store.groups["user_alice_abc_com"] = &tenant.Group{ID: "user_alice_abc_com", Kind: tenant.KindPersonal, Status: tenant.StatusActive}
		users := &fakeUsers{ids: map[string]bool{"u1": true}}
		svc := newTestService(store, nil, users)

		err := svc.AddMember(ctx, "user_alice_abc_com", "u1", authz.RoleEditor)
		assert.ErrorIs(t, err, ErrNotTeam)

		_, err = svc.ListMembers(ctx, "user_alice_abc_com")
		assert.ErrorIs(t, err, ErrNotTeam)
	})

	t.Run("update member role", func(t *testing.T) {
		svc, memberships := setup()

		require.NoError(t, svc.UpdateMemberRole(ctx, "marketing_abc", "u1", authz.RoleAdmin))
		require.Len(t, memberships.roleSets, 1)
		assert.Equal(t, [3]string{"u1", "marketing_abc", "admin"}, memberships.roleSets[0])
	})

	t.Run("update member role passes through missing membership", func(t *testing.T) {
		svc, memberships := setup()
		memberships.roleErr = membership.ErrNotFound

		err := svc.UpdateMemberRole(ctx, "marketing_abc", "u1", authz.RoleAdmin)
		assert.ErrorIs(t, err, membership.ErrNotFound)
	})

	t.Run("remove member", func(t *testing.T) {
		svc, memberships := setup()

		require.NoError(t, svc.RemoveMember(ctx, "marketing_abc", "u1"))
		assert.Equal(t, [][2]string{{"u1", "marketing_abc"}}, memberships.removed)
	})
}
