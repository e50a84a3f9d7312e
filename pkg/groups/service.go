package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/audit"
	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/identity"
	"github.com/flowdeck/flowdeck/pkg/membership"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/tenant"
)

// ErrReservedID is returned when a team id collides with the personal-tenant
// namespace.
var ErrReservedID = errors.New("groups: id is reserved for personal tenants")

// ErrInvalidRole is returned when a roster operation names an unknown role.
var ErrInvalidRole = errors.New("groups: invalid role")

// ErrNotTeam is returned for roster operations against a personal tenant.
var ErrNotTeam = errors.New("groups: not a team tenant")

// Service manages team tenants and their rosters.
type Service struct {
	store       Store
	memberships membership.Store
	users       identity.Store
	logger      *observability.Logger
}

// NewService creates a groups service.
func NewService(store Store, memberships membership.Store, users identity.Store, logger *observability.Logger) *Service {
	return &Service{
		store:       store,
		memberships: memberships,
		users:       users,
		logger:      logger,
	}
}

// CreateTeam creates a team tenant. When id is empty it is derived from
// domain. Ids inside the personal-tenant namespace are rejected so a team can
// never shadow someone's personal workspace.
func (s *Service) CreateTeam(ctx context.Context, id, domain, name, description string) (*tenant.Group, error) {
	if id == "" {
		if domain == "" {
			return nil, fmt.Errorf("groups: id or domain required")
		}
		id = tenant.TeamID(domain)
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, fmt.Errorf("groups: id required")
	}
	if tenant.IsPersonalID(id) {
		return nil, fmt.Errorf("%w: %s", ErrReservedID, id)
	}
	if name == "" {
		name = id
	}

	g := &tenant.Group{
		ID:          id,
		Name:        name,
		Description: description,
		Kind:        tenant.KindTeam,
		Status:      tenant.StatusActive,
	}
	if err := s.store.Create(ctx, g); err != nil {
		return nil, err
	}

	s.logger.WithField("group_id", g.ID).Info("team tenant created")
	audit.Record(ctx, &audit.Event{
		EventType: audit.EventTypeGroupCreated,
		Status:    audit.EventStatusSuccess,
		GroupID:   g.ID,
		Message:   fmt.Sprintf("team %s created", g.ID),
	})
	return g, nil
}

// Get returns a group by id. Personal tenants without a backing row are
// synthesized from the id so that callers see a uniform shape.
func (s *Service) Get(ctx context.Context, id string) (*tenant.Group, error) {
	g, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) && tenant.IsPersonalID(id) {
		return &tenant.Group{
			ID:     id,
			Name:   id,
			Kind:   tenant.KindPersonal,
			Status: tenant.StatusActive,
		}, nil
	}
	return g, err
}

// ListTeams returns team tenants.
func (s *Service) ListTeams(ctx context.Context, limit, offset int) ([]*tenant.Group, error) {
	return s.store.List(ctx, tenant.KindTeam, limit, offset)
}

// AddMember adds a user to a team roster with the given role, reactivating a
// previously removed membership if one exists.
func (s *Service) AddMember(ctx context.Context, groupID, userID string, role authz.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	g, err := s.store.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if g.Kind != tenant.KindTeam {
		return fmt.Errorf("%w: %s", ErrNotTeam, groupID)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	m := &membership.Membership{
		UserID:  userID,
		GroupID: groupID,
		Role:    role,
		Status:  membership.StatusActive,
	}
	if err := s.memberships.Upsert(ctx, m); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"group_id":  groupID,
		"member_id": userID,
		"role":      role,
	}).Info("member added")
	audit.Record(ctx, &audit.Event{
		EventType: audit.EventTypeMemberAdded,
		Status:    audit.EventStatusSuccess,
		GroupID:   groupID,
		Message:   fmt.Sprintf("user %s added as %s", userID, role),
	})
	return nil
}

// UpdateMemberRole changes an existing member's role.
func (s *Service) UpdateMemberRole(ctx context.Context, groupID, userID string, role authz.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	if err := s.memberships.UpdateRole(ctx, userID, groupID, role); err != nil {
		return err
	}

	audit.Record(ctx, &audit.Event{
		EventType: audit.EventTypeMemberRoleChanged,
		Status:    audit.EventStatusSuccess,
		GroupID:   groupID,
		Message:   fmt.Sprintf("user %s role changed to %s", userID, role),
	})
	return nil
}

// RemoveMember removes a user from a team roster. The user's identity record
// and their data in other tenants are untouched.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID string) error {
	if err := s.memberships.Remove(ctx, userID, groupID); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"group_id":  groupID,
		"member_id": userID,
	}).Info("member removed")
	audit.Record(ctx, &audit.Event{
		EventType: audit.EventTypeMemberRemoved,
		Status:    audit.EventStatusSuccess,
		GroupID:   groupID,
		Message:   fmt.Sprintf("user %s removed", userID),
	})
	return nil
}

// ListMembers returns the team's roster.
func (s *Service) ListMembers(ctx context.Context, groupID string) ([]*membership.Membership, error) {
	g, err := s.store.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.Kind != tenant.KindTeam {
		return nil, fmt.Errorf("%w: %s", ErrNotTeam, groupID)
	}
	return s.memberships.ListForGroup(ctx, groupID)
}
