package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/audit"
	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/tenantctx"
)

// Service applies the tenant visibility and role policy on top of the store.
// Every method resolves the caller from the request context installed by the
// middleware.
type Service struct {
	store  Store
	logger *observability.Logger
}

// NewService creates an agents service.
func NewService(store Store, logger *observability.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) caller(ctx context.Context) (*tenantctx.Context, error) {
	tc, ok := tenantctx.FromContext(ctx)
	if !ok {
		return nil, authz.ErrUnauthenticated
	}
	return tc, nil
}

// Create registers an agent in the caller's active tenant.
func (s *Service) Create(ctx context.Context, a *Agent) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleEditor, authz.RoleAdmin); err != nil {
		return err
	}
	if a.Name == "" {
		return fmt.Errorf("agents: name required")
	}

	a.GroupID = tc.Primary()
	a.CreatedBy = tc.UserID()
	if err := s.store.Create(ctx, a); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"agent_id": a.ID,
		"group_id": a.GroupID,
	}).Info("agent created")
	audit.Record(ctx, &audit.Event{
		EventType:    audit.EventTypeAgentCreate,
		Status:       audit.EventStatusSuccess,
		UserID:       tc.UserID(),
		GroupID:      a.GroupID,
		ResourceType: "agent",
		ResourceID:   a.ID,
	})
	return nil
}

// Get returns an agent visible to the caller. Agents owned by tenants outside
// the caller's authorized set read as not found.
func (s *Service) Get(ctx context.Context, id string) (*Agent, error) {
	tc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &authz.NotFoundError{Resource: "agent"}
	}
	if err != nil {
		return nil, err
	}
	if err := authz.SameTenantOrNotFound(tc, a.GroupID, "agent"); err != nil {
		audit.Record(ctx, &audit.Event{
			EventType:    audit.EventTypeCrossTenantHit,
			Status:       audit.EventStatusDenied,
			UserID:       tc.UserID(),
			GroupID:      tc.Primary(),
			ResourceType: "agent",
			ResourceID:   id,
		})
		return nil, err
	}
	return a, nil
}

// List returns the caller's tenant's agents.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Agent, error) {
	tc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListForGroup(ctx, tc.Primary(), limit, offset)
}

// Update modifies an agent in the caller's active tenant.
func (s *Service) Update(ctx context.Context, a *Agent) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleEditor, authz.RoleAdmin); err != nil {
		return err
	}

	existing, err := s.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	if err := authz.RequireActiveTenant(tc, existing.GroupID, "agent"); err != nil {
		return err
	}
	a.GroupID = existing.GroupID
	return s.store.Update(ctx, a)
}

// Delete removes an agent from the caller's active tenant.
func (s *Service) Delete(ctx context.Context, id string) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleEditor, authz.RoleAdmin); err != nil {
		return err
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.RequireActiveTenant(tc, a.GroupID, "agent"); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, a.ID); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"agent_id": a.ID,
		"group_id": a.GroupID,
	}).Info("agent deleted")
	audit.Record(ctx, &audit.Event{
		EventType:    audit.EventTypeAgentDelete,
		Status:       audit.EventStatusSuccess,
		UserID:       tc.UserID(),
		GroupID:      a.GroupID,
		ResourceType: "agent",
		ResourceID:   a.ID,
	})
	return nil
}
