package flows

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
type Service struct {
	store  Store
	logger *observability.Logger
}

// NewService creates a flows service.
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

// Create adds a flow to the caller's active tenant.
func (s *Service) Create(ctx context.Context, f *Flow) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleEditor, authz.RoleAdmin); err != nil {
		return err
	}
	if f.Name == "" {
		return fmt.Errorf("flows: name required")
	}

	f.GroupID = tc.Primary()
	f.CreatedBy = tc.UserID()
	if err := s.store.Create(ctx, f); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"flow_id":  f.ID,
		"group_id": f.GroupID,
	}).Info("flow created")
	audit.Record(ctx, &audit.Event{
		EventType:    audit.EventTypeFlowCreate,
		Status:       audit.EventStatusSuccess,
		UserID:       tc.UserID(),
		GroupID:      f.GroupID,
		ResourceType: "flow",
		ResourceID:   f.ID,
	})
	return nil
}

// Get returns a flow visible to the caller. Flows owned by tenants outside
// the caller's authorized set read as not found.
func (s *Service) Get(ctx context.Context, id string) (*Flow, error) {
	tc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	f, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &authz.NotFoundError{Resource: "flow"}
	}
	if err != nil {
		return nil, err
	}
	if err := authz.SameTenantOrNotFound(tc, f.GroupID, "flow"); err != nil {
		audit.Record(ctx, &audit.Event{
			EventType:    audit.EventTypeCrossTenantHit,
			Status:       audit.EventStatusDenied,
			UserID:       tc.UserID(),
			GroupID:      tc.Primary(),
			ResourceType: "flow",
			ResourceID:   id,
		})
		return nil, err
	}
	return f, nil
}

// List returns the caller's tenant's flows.
func (s *Service) List(ctx context.Context, status FlowStatus, limit, offset int) ([]*Flow, error) {
	tc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListForGroup(ctx, tc.Primary(), status, limit, offset)
}

// Update modifies a flow in the caller's active tenant.
func (s *Service) Update(ctx context.Context, f *Flow) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleEditor, authz.RoleAdmin); err != nil {
		return err
	}

	existing, err := s.Get(ctx, f.ID)
	if err != nil {
		return err
	}
	if err := authz.RequireActiveTenant(tc, existing.GroupID, "flow"); err != nil {
		return err
	}
	f.GroupID = existing.GroupID
	return s.store.Update(ctx, f)
}

// Delete removes a flow and, through the schema, its schedules.
func (s *Service) Delete(ctx context.Context, id string) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleEditor, authz.RoleAdmin); err != nil {
		return err
	}

	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.RequireActiveTenant(tc, f.GroupID, "flow"); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, f.ID); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"flow_id":  f.ID,
		"group_id": f.GroupID,
	}).Info("flow deleted")
	audit.Record(ctx, &audit.Event{
		EventType:    audit.EventTypeFlowDelete,
		Status:       audit.EventStatusSuccess,
		UserID:       tc.UserID(),
		GroupID:      f.GroupID,
		ResourceType: "flow",
		ResourceID:   f.ID,
	})
	return nil
}
