package agents

import (
	"context"
	"errors"
	"time"
)

// AgentStatus represents agent lifecycle status.
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "active"
	AgentStatusDisabled AgentStatus = "disabled"
)

// Agent is a registered automation agent owned by one tenant.
type Agent struct {
	ID          string      `json:"id"`
	GroupID     string      `json:"group_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Endpoint    string      `json:"endpoint,omitempty"`
	Status      AgentStatus `json:"status"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ErrNotFound is returned when no agent row matches.
var ErrNotFound = errors.New("agents: not found")

// ErrAlreadyExists is returned when an agent name is taken within the tenant.
var ErrAlreadyExists = errors.New("agents: already exists")

// Store is the agent persistence adapter.
type Store interface {
	Create(ctx context.Context, a *Agent) error
	Get(ctx context.Context, id string) (*Agent, error)
	ListForGroup(ctx context.Context, groupID string, limit, offset int) ([]*Agent, error)
	Update(ctx context.Context, a *Agent) error
	Delete(ctx context.Context, id string) error
}
