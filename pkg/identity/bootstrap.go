package identity

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/tenant"
)

// DefaultGroupID is the id of the team tenant created by bootstrap.
const DefaultGroupID = "default"

// Bootstrap promotes the very first user the system ever sees to system
// admin and creates the default team tenant. Promotion is guarded twice:
// singleflight collapses concurrent in-process attempts, and the store's
// conditional write decides cross-process races. A promotion that committed
// stays committed even if the triggering request is later abandoned.
type Bootstrap struct {
	users  Store
	groups GroupStore
	logger *observability.Logger
	group  singleflight.Group
}

// NewBootstrap creates a Bootstrap.
func NewBootstrap(users Store, groups GroupStore, logger *observability.Logger) *Bootstrap {
	return &Bootstrap{users: users, groups: groups, logger: logger}
}

// Required reports whether bootstrap should run for user: either the user is
// the only row in the system, or no system admin exists yet anywhere.
func (b *Bootstrap) Required(ctx context.Context, justCreated bool) (bool, error) {
	if justCreated {
		count, err := b.users.CountUsers(ctx)
		if err != nil {
			return false, &authz.StoreError{Op: "user count", Err: err}
		}
		if count == 1 {
			return true, nil
		}
	}
	hasAdmin, err := b.users.HasSystemAdmin(ctx)
	if err != nil {
		return false, &authz.StoreError{Op: "system admin check", Err: err}
	}
	return !hasAdmin, nil
}

// Run performs the promotion for user. Exactly one of N racing callers wins
// the elevation write; the others observe the already-elevated state and
// return without error. user is updated in place when this process's write
// (or a concurrent one) elevated it.
// promotionTimeout bounds the detached promotion write.
const promotionTimeout = 10 * time.Second

func (b *Bootstrap) Run(ctx context.Context, user *User) error {
	_, err, _ := b.group.Do("first-principal", func() (interface{}, error) {
		// The promotion runs on a detached, bounded context. The winning
		// caller's request may be cancelled mid-flight, and the sharing
		// callers would otherwise inherit that cancellation; the write
		// itself is tiny and must either commit or fail on its own terms.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), promotionTimeout)
		defer cancel()
		return nil, b.run(runCtx, user)
	})
	if err != nil {
		return err
	}
	// The singleflight winner may have elevated a different user. Re-read the
	// flags for this one so the caller resolves permissions from fresh state.
	fresh, err := b.users.GetByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return authz.ErrInternalConsistency
		}
		return &authz.StoreError{Op: "user re-fetch", Err: err}
	}
	*user = *fresh
	return nil
}

func (b *Bootstrap) run(ctx context.Context, user *User) error {
	if _, err := b.groups.EnsureGroup(ctx, &tenant.Group{
		ID:     DefaultGroupID,
		Name:   "Default",
		Kind:   tenant.KindTeam,
		Status: tenant.StatusActive,
	}); err != nil {
		return &authz.StoreError{Op: "default group create", Err: err}
	}

	won, err := b.users.PromoteFirstPrincipal(ctx, user.ID)
	if err != nil {
		return &authz.StoreError{Op: "first principal promotion", Err: err}
	}
	if won {
		b.logger.WithFields(map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
		}).Info("promoted first principal to system admin")
	}
	return nil
}
