package flows

import (
	"context"
	"errors"
	"time"
)

// FlowStatus represents flow lifecycle status.
type FlowStatus string

const (
	FlowStatusDraft    FlowStatus = "draft"
	FlowStatusActive   FlowStatus = "active"
	FlowStatusDisabled FlowStatus = "disabled"
)

// Flow is a workflow definition owned by one tenant. Definition holds the
// serialized step graph; this service treats it as opaque JSON.
type Flow struct {
	ID          string     `json:"id"`
	GroupID     string     `json:"group_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Definition  string     `json:"definition"`
	Status      FlowStatus `json:"status"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ErrNotFound is returned when no flow row matches.
var ErrNotFound = errors.New("flows: not found")

// ErrAlreadyExists is returned when a flow name is taken within the tenant.
var ErrAlreadyExists = errors.New("flows: already exists")

// Store is the flow persistence adapter.
type Store interface {
	Create(ctx context.Context, f *Flow) error
	Get(ctx context.Context, id string) (*Flow, error)
	ListForGroup(ctx context.Context, groupID string, status FlowStatus, limit, offset int) ([]*Flow, error)
	Update(ctx context.Context, f *Flow) error
	Delete(ctx context.Context, id string) error
}
