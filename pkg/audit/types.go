package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	// Identity events
	EventTypeUserProvisioned EventType = "identity.user_provisioned"
	EventTypeBootstrap       EventType = "identity.first_principal_bootstrap"
	EventTypeAdminGrant      EventType = "identity.system_admin_grant"
	EventTypeAdminRevoke     EventType = "identity.system_admin_revoke"

	// Tenant binding events
	EventTypeContextBuilt    EventType = "tenant.context_built"
	EventTypeTenantDenied    EventType = "tenant.access_denied"
	EventTypeUnauthenticated EventType = "tenant.unauthenticated"

	// Authorization events
	EventTypeRoleDenied     EventType = "authz.role_denied"
	EventTypeCrossTenantHit EventType = "authz.cross_tenant_not_found"

	// Membership events
	EventTypeMemberAdded       EventType = "membership.added"
	EventTypeMemberRemoved     EventType = "membership.removed"
	EventTypeMemberRoleChanged EventType = "membership.role_changed"

	// Group events
	EventTypeGroupCreated EventType = "group.created"

	// Data mutation events
	EventTypeAgentCreate    EventType = "data.agent_create"
	EventTypeAgentDelete    EventType = "data.agent_delete"
	EventTypeFlowCreate     EventType = "data.flow_create"
	EventTypeFlowDelete     EventType = "data.flow_delete"
	EventTypeScheduleCreate EventType = "data.schedule_create"
	EventTypeScheduleDelete EventType = "data.schedule_delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	ID        int64       `json:"id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	GroupID string `json:"group_id,omitempty"`

	// Resource
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	// Request context
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
