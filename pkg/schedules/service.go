package schedules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowdeck/flowdeck/pkg/audit"
	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/flows"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/tenantctx"
)

// FlowLookup is the slice of the flows service needed to bind schedules to
// flows the caller can actually see.
type FlowLookup interface {
	Get(ctx context.Context, id string) (*flows.Flow, error)
}

// Service applies the tenant visibility and role policy on top of the store
// and validates cron expressions at write time.
type Service struct {
	store  Store
	flows  FlowLookup
	logger *observability.Logger
}

// NewService creates a schedules service.
func NewService(store Store, flowLookup FlowLookup, logger *observability.Logger) *Service {
	return &Service{
		store:  store,
		flows:  flowLookup,
		logger: logger,
	}
}

var stdParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextAfter computes when expr next fires after t.
func NextAfter(expr string, t time.Time) (time.Time, error) {
	sched, err := stdParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return sched.Next(t), nil
}

func (s *Service) caller(ctx context.Context) (*tenantctx.Context, error) {
	tc, ok := tenantctx.FromContext(ctx)
	if !ok {
		return nil, authz.ErrUnauthenticated
	}
	return tc, nil
}

// Create adds a schedule for a flow in the caller's active tenant. The flow
// lookup runs through the same visibility policy as a direct read, and the
// flow must live in the active tenant: the caller's role was resolved for
// that tenant only, so a schedule can never bind to another tenant's flow.
func (s *Service) Create(ctx context.Context, sched *Schedule) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleEditor, authz.RoleAdmin); err != nil {
		return err
	}

	next, err := NextAfter(sched.CronExpr, time.Now())
	if err != nil {
		return err
	}

	flow, err := s.flows.Get(ctx, sched.FlowID)
	if err != nil {
		return err
	}
	if err := authz.RequireActiveTenant(tc, flow.GroupID, "flow"); err != nil {
		return err
	}

	sched.GroupID = flow.GroupID
	sched.CreatedBy = tc.UserID()
	sched.Enabled = true
	sched.NextRun = &next
	if err := s.store.Create(ctx, sched); err != nil {
		return err
	}

	audit.Record(ctx, &audit.Event{
		EventType:    audit.EventTypeScheduleCreate,
		Status:       audit.EventStatusSuccess,
		UserID:       tc.UserID(),
		GroupID:      sched.GroupID,
		ResourceType: "schedule",
		ResourceID:   sched.ID,
	})
	return nil
}

// Get returns a schedule visible to the caller.
func (s *Service) Get(ctx context.Context, id string) (*Schedule, error) {
	tc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	sched, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &authz.NotFoundError{Resource: "schedule"}
	}
	if err != nil {
		return nil, err
	}
	if err := authz.SameTenantOrNotFound(tc, sched.GroupID, "schedule"); err != nil {
		audit.Record(ctx, &audit.Event{
			EventType:    audit.EventTypeCrossTenantHit,
			Status:       audit.EventStatusDenied,
			UserID:       tc.UserID(),
			GroupID:      tc.Primary(),
			ResourceType: "schedule",
			ResourceID:   id,
		})
		return nil, err
	}
	return sched, nil
}

// List returns the caller's tenant's schedules.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Schedule, error) {
	tc, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListForGroup(ctx, tc.Primary(), limit, offset)
}

// Update modifies a schedule's expression or enabled state.
func (s *Service) Update(ctx context.Context, sched *Schedule) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleEditor, authz.RoleAdmin); err != nil {
		return err
	}

	existing, err := s.Get(ctx, sched.ID)
	if err != nil {
		return err
	}
	if err := authz.RequireActiveTenant(tc, existing.GroupID, "schedule"); err != nil {
		return err
	}

	next, err := NextAfter(sched.CronExpr, time.Now())
	if err != nil {
		return err
	}

	sched.GroupID = existing.GroupID
	sched.NextRun = &next
	return s.store.Update(ctx, sched)
}

// Delete removes a schedule. Deletion is reserved for tenant admins.
func (s *Service) Delete(ctx context.Context, id string) error {
	tc, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := authz.Require(tc, authz.RoleAdmin); err != nil {
		return err
	}

	sched, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.RequireActiveTenant(tc, sched.GroupID, "schedule"); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sched.ID); err != nil {
		return err
	}

	audit.Record(ctx, &audit.Event{
		EventType:    audit.EventTypeScheduleDelete,
		Status:       audit.EventStatusSuccess,
		UserID:       tc.UserID(),
		GroupID:      sched.GroupID,
		ResourceType: "schedule",
		ResourceID:   sched.ID,
	})
	return nil
}
