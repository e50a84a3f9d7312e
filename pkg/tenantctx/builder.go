package tenantctx

import (
	"context"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/identity"
	"github.com/flowdeck/flowdeck/pkg/membership"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/tenant"
)

// Builder orchestrates identity resolution, membership enumeration, tenant
// validation and permission resolution into one immutable Context per
// request. It holds no per-request state and is safe for concurrent use.
type Builder struct {
	provisioner *identity.Provisioner
	bootstrap   *identity.Bootstrap
	memberships membership.Store
	logger      *observability.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(provisioner *identity.Provisioner, bootstrap *identity.Bootstrap, memberships membership.Store, logger *observability.Logger) *Builder {
	return &Builder{
		provisioner: provisioner,
		bootstrap:   bootstrap,
		memberships: memberships,
		logger:      logger,
	}
}

// Build resolves the tenant binding for one request.
//
// The steps run strictly in order: identity resolution (creating the user on
// first sight), first-principal bootstrap when no system admin exists yet,
// membership enumeration, requested-tenant validation, and permission
// resolution. accessToken is carried through unvalidated. No lock is held
// across the store round-trips.
//
// Failures: authz.ErrUnauthenticated when email is empty,
// *authz.AccessDeniedError when requestedTenantID is outside the caller's
// authorized set (the message names only the rejected id),
// authz.ErrInternalConsistency when an authorized tenant yields no role, and
// *authz.StoreError for store round-trip failures.
func (b *Builder) Build(ctx context.Context, email, accessToken, requestedTenantID string) (*Context, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, authz.ErrUnauthenticated
	}

	user, created, err := b.provisioner.ResolveOrCreate(ctx, email)
	if err != nil {
		return nil, err
	}

	required, err := b.bootstrap.Required(ctx, created)
	if err != nil {
		return nil, err
	}
	if required {
		if err := b.bootstrap.Run(ctx, user); err != nil {
			return nil, err
		}
	}

	memberships, err := b.memberships.ListActiveForUser(ctx, user.ID)
	if err != nil {
		return nil, &authz.StoreError{Op: "membership enumeration", Err: err}
	}

	personal := tenant.PersonalID(email)
	authorized := make(map[string]struct{}, len(memberships)+1)
	authorized[personal] = struct{}{}
	roleByGroup := make(map[string]authz.Role, len(memberships))
	var firstTeam string
	for _, m := range memberships {
		if _, seen := authorized[m.GroupID]; !seen && firstTeam == "" {
			firstTeam = m.GroupID
		}
		authorized[m.GroupID] = struct{}{}
		roleByGroup[m.GroupID] = m.Role
	}

	primary := requestedTenantID
	if primary != "" {
		if _, ok := authorized[primary]; !ok {
			return nil, &authz.AccessDeniedError{TenantID: primary}
		}
	} else if firstTeam != "" {
		primary = firstTeam
	} else {
		primary = personal
	}

	role, ok := authz.EffectiveRole(user.Subject(), primary, roleByGroup[primary])
	if !ok {
		// The tenant passed the authorized-set check yet resolved to no role.
		// That contradicts membership enumeration and indicates a bug.
		b.logger.WithFields(map[string]interface{}{
			"user_id":   user.ID,
			"tenant_id": primary,
		}).Error("authorized tenant resolved to no role")
		return nil, authz.ErrInternalConsistency
	}

	if err := ctx.Err(); err != nil {
		// Cancelled mid-resolution: the caller must not install the context.
		return nil, err
	}

	return &Context{
		userID:      user.ID,
		email:       email,
		domain:      tenant.Domain(email),
		primary:     primary,
		role:        role,
		systemAdmin: user.IsSystemAdmin,
		authorized:  authorized,
		accessToken: accessToken,
	}, nil
}
