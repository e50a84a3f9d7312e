package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveRole(t *testing.T) {
	alice := Subject{UserID: "u1", Email: "alice@abc.com"}
	alicePersonal := "user_alice_abc_com"

	tests := []struct {
		name           string
		sub            Subject
		tenantID       string
		membershipRole Role
		expectedRole   Role
		expectedOK     bool
	}{
		{
			name:           "system admin wins in a team tenant",
			sub:            Subject{UserID: "u1", Email: "alice@abc.com", IsSystemAdmin: true},
			tenantID:       "marketing_abc",
			membershipRole: RoleOperator,
			expectedRole:   RoleAdmin,
			expectedOK:     true,
		},
		{
			name:         "system admin wins in a foreign personal tenant",
			sub:          Subject{UserID: "u1", Email: "alice@abc.com", IsSystemAdmin: true},
			tenantID:     "user_bob_abc_com",
			expectedRole: RoleAdmin,
			expectedOK:   true,
		},
		{
			name:         "system admin without any membership",
			sub:          Subject{UserID: "u1", Email: "alice@abc.com", IsSystemAdmin: true},
			tenantID:     "sales_xyz",
			expectedRole: RoleAdmin,
			expectedOK:   true,
		},
		{
			name:         "workspace manager is admin of own personal tenant",
			sub:          Subject{UserID: "u1", Email: "alice@abc.com", IsWorkspaceManager: true},
			tenantID:     alicePersonal,
			expectedRole: RoleAdmin,
			expectedOK:   true,
		},
		{
			name:         "plain user is editor of own personal tenant",
			sub:          alice,
			tenantID:     alicePersonal,
			expectedRole: RoleEditor,
			expectedOK:   true,
		},
		{
			name:         "someone else's personal tenant yields nothing",
			sub:          alice,
			tenantID:     "user_bob_abc_com",
			expectedOK:   false,
			expectedRole: RoleNone,
		},
		{
			name:           "team tenant uses the explicit membership role",
			sub:            alice,
			tenantID:       "marketing_abc",
			membershipRole: RoleOperator,
			expectedRole:   RoleOperator,
			expectedOK:     true,
		},
		{
			name:           "team membership editor",
			sub:            alice,
			tenantID:       "marketing_abc",
			membershipRole: RoleEditor,
			expectedRole:   RoleEditor,
			expectedOK:     true,
		},
		{
			name:         "team tenant without membership yields nothing",
			sub:          alice,
			tenantID:     "sales_xyz",
			expectedOK:   false,
			expectedRole: RoleNone,
		},
		{
			name:           "workspace manager flag does not leak into team tenants",
			sub:            Subject{UserID: "u1", Email: "alice@abc.com", IsWorkspaceManager: true},
			tenantID:       "marketing_abc",
			membershipRole: RoleNone,
			expectedOK:     false,
			expectedRole:   RoleNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := EffectiveRole(tt.sub, tt.tenantID, tt.membershipRole)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expectedRole, role)
		})
	}
}

func TestEffectiveRoleIsPure(t *testing.T) {
	sub := Subject{UserID: "u1", Email: "alice@abc.com", IsWorkspaceManager: true}
	first, ok1 := EffectiveRole(sub, "user_alice_abc_com", RoleNone)
	second, ok2 := EffectiveRole(sub, "user_alice_abc_com", RoleNone)
	assert.Equal(t, first, second)
	assert.Equal(t, ok1, ok2)
}
