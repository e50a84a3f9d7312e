package tenant

import "time"

// Kind discriminates personal workspaces from team tenants. It is written at
// group-creation time so classification does not depend on the id prefix
// convention alone.
type Kind string

const (
	KindTeam     Kind = "team"
	KindPersonal Kind = "personal"
)

// KindForID classifies an id that has no stored row. Personal tenants are
// derivable on demand, so this is the only classification available for them.
func KindForID(id string) Kind {
	if IsPersonalID(id) {
		return KindPersonal
	}
	return KindTeam
}

// Status represents group lifecycle status.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusArchived  Status = "archived"
)

// Group is a tenant: the isolation boundary all business data is scoped to.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsActive reports whether the group accepts requests.
func (g *Group) IsActive() bool {
	return g.Status == StatusActive
}
