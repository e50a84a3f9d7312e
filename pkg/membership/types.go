package membership

import (
	"context"
	"errors"
	"time"

	"github.com/flowdeck/flowdeck/pkg/authz"
)

// Status represents membership lifecycle status.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Membership links a user to a team tenant with an explicit role.
type Membership struct {
	UserID    string     `json:"user_id"`
	GroupID   string     `json:"group_id"`
	Role      authz.Role `json:"role"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ErrNotFound is returned when no membership row matches.
var ErrNotFound = errors.New("membership: not found")

// Store is the membership store adapter.
type Store interface {
	// ListActiveForUser returns the user's active team memberships in
	// discovery order (oldest first). Tenant-context defaulting depends on
	// that ordering being stable.
	ListActiveForUser(ctx context.Context, userID string) ([]*Membership, error)

	ListForGroup(ctx context.Context, groupID string) ([]*Membership, error)

	// Upsert creates or reactivates the (user, group) membership with the
	// given role, keeping at most one active row per pair.
	Upsert(ctx context.Context, m *Membership) error

	UpdateRole(ctx context.Context, userID, groupID string, role authz.Role) error
	Remove(ctx context.Context, userID, groupID string) error
}
