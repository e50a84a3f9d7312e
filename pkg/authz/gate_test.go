package authz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenantContext struct {
	role       Role
	primary    string
	authorized map[string]bool
}

func (f *fakeTenantContext) EffectiveRole() Role { return f.role }

func (f *fakeTenantContext) Primary() string { return f.primary }

func (f *fakeTenantContext) Authorized(tenantID string) bool { return f.authorized[tenantID] }

func TestRequire(t *testing.T) {
	t.Run("matching role passes", func(t *testing.T) {
		tc := &fakeTenantContext{role: RoleEditor}
		assert.NoError(t, Require(tc, RoleEditor, RoleAdmin))
	})

	t.Run("admin listed explicitly passes", func(t *testing.T) {
		tc := &fakeTenantContext{role: RoleAdmin}
		assert.NoError(t, Require(tc, RoleEditor, RoleAdmin))
	})

	t.Run("higher role is not implied", func(t *testing.T) {
		// The gate matches exactly; callers list every acceptable tier.
		tc := &fakeTenantContext{role: RoleAdmin}
		err := Require(tc, RoleEditor)
		require.Error(t, err)
		assert.True(t, IsForbidden(err))
	})

	t.Run("insufficient role is forbidden", func(t *testing.T) {
		tc := &fakeTenantContext{role: RoleOperator}
		err := Require(tc, RoleEditor, RoleAdmin)
		require.Error(t, err)

		var fe *ForbiddenError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, []Role{RoleEditor, RoleAdmin}, fe.Allowed)
		assert.Equal(t, RoleOperator, fe.Actual)
		assert.Contains(t, fe.Error(), "editor or admin")
		assert.Contains(t, fe.Error(), `"operator"`)
	})
}

func TestSameTenantOrNotFound(t *testing.T) {
	tc := &fakeTenantContext{
		role:       RoleEditor,
		authorized: map[string]bool{"marketing_abc": true, "user_alice_abc_com": true},
	}

	t.Run("authorized tenant passes", func(t *testing.T) {
		assert.NoError(t, SameTenantOrNotFound(tc, "marketing_abc", "agent"))
	})

	t.Run("foreign tenant reads as not found", func(t *testing.T) {
		err := SameTenantOrNotFound(tc, "sales_xyz", "agent")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.False(t, IsForbidden(err), "cross-tenant hits must not be distinguishable from missing rows")
		assert.Equal(t, "agent not found", err.Error())
	})

	t.Run("message never names the foreign tenant", func(t *testing.T) {
		err := SameTenantOrNotFound(tc, "sales_xyz", "flow")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "sales_xyz")
	})
}

func TestRequireActiveTenant(t *testing.T) {
	tc := &fakeTenantContext{
		role:       RoleEditor,
		primary:    "marketing_abc",
		authorized: map[string]bool{"marketing_abc": true, "sales_xyz": true, "user_alice_abc_com": true},
	}

	t.Run("active tenant passes", func(t *testing.T) {
		assert.NoError(t, RequireActiveTenant(tc, "marketing_abc", "agent"))
	})

	t.Run("authorized but inactive tenant is rejected", func(t *testing.T) {
		// The effective role belongs to the active tenant only; being an
		// editor there says nothing about sales_xyz.
		err := RequireActiveTenant(tc, "sales_xyz", "agent")
		require.Error(t, err)
		assert.True(t, IsActiveTenantMismatch(err))
		assert.False(t, IsNotFound(err))
		assert.Contains(t, err.Error(), `"sales_xyz"`)
		assert.Contains(t, err.Error(), "active tenant")
	})

	t.Run("own personal tenant is still inactive when a team is bound", func(t *testing.T) {
		err := RequireActiveTenant(tc, "user_alice_abc_com", "flow")
		require.Error(t, err)
		assert.True(t, IsActiveTenantMismatch(err))
	})

	t.Run("unauthorized tenant still reads as not found", func(t *testing.T) {
		err := RequireActiveTenant(tc, "finance_abc", "agent")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.False(t, IsActiveTenantMismatch(err))
		assert.NotContains(t, err.Error(), "finance_abc")
	})
}

func TestErrorClassification(t *testing.T) {
	t.Run("access denied", func(t *testing.T) {
		err := fmt.Errorf("building context: %w", &AccessDeniedError{TenantID: "sales_xyz"})
		assert.True(t, IsAccessDenied(err))
		assert.False(t, IsForbidden(err))
		assert.Contains(t, err.Error(), `"sales_xyz"`)
	})

	t.Run("store error unwraps", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &StoreError{Op: "list memberships", Err: cause}
		assert.True(t, IsStoreUnavailable(err))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "list memberships")
	})

	t.Run("not found without resource name", func(t *testing.T) {
		err := &NotFoundError{}
		assert.Equal(t, "not found", err.Error())
	})

	t.Run("unauthenticated is none of the typed failures", func(t *testing.T) {
		assert.False(t, IsAccessDenied(ErrUnauthenticated))
		assert.False(t, IsForbidden(ErrUnauthenticated))
		assert.False(t, IsNotFound(ErrUnauthenticated))
		assert.False(t, IsStoreUnavailable(ErrUnauthenticated))
	})
}
