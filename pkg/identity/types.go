package identity

import (
	"context"
	"errors"
	"time"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/tenant"
)

// UserStatus represents user lifecycle status.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is an identity record. Users are created on first sight of a forwarded
// email and never hard-deleted while memberships reference them.
type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	IsSystemAdmin      bool       `json:"is_system_admin"`
	IsWorkspaceManager bool       `json:"is_workspace_manager"`
	DefaultRole        authz.Role `json:"default_role"`
	Status             UserStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Subject converts the user into the resolver's input value.
func (u *User) Subject() authz.Subject {
	return authz.Subject{
		UserID:             u.ID,
		Email:              u.Email,
		IsSystemAdmin:      u.IsSystemAdmin,
		IsWorkspaceManager: u.IsWorkspaceManager,
	}
}

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("identity: not found")

// ErrAlreadyExists is returned by Create on a uniqueness violation. The
// Constraint field of the wrapped driver error distinguishes email from
// username collisions where that matters.
var ErrAlreadyExists = errors.New("identity: already exists")

// Store is the identity store adapter. Implementations must translate driver
// uniqueness violations into ErrAlreadyExists so callers can resolve races.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
	CountUsers(ctx context.Context) (int64, error)
	HasSystemAdmin(ctx context.Context) (bool, error)

	// PromoteFirstPrincipal conditionally elevates userID to system admin and
	// workspace manager, succeeding as a fresh write only while no system
	// admin exists anywhere. Returns whether this call performed the write.
	PromoteFirstPrincipal(ctx context.Context, userID string) (bool, error)

	// SetSystemAdmin grants or revokes the system-wide admin flag.
	SetSystemAdmin(ctx context.Context, userID string, grant bool) error

	ListUsers(ctx context.Context, limit, offset int) ([]*User, error)
}

// GroupStore is the slice of group persistence bootstrap needs: an idempotent
// create used for the one default team tenant.
type GroupStore interface {
	// EnsureGroup inserts the group if no row with its id exists. Returns
	// whether a row was inserted by this call.
	EnsureGroup(ctx context.Context, g *tenant.Group) (bool, error)
}
