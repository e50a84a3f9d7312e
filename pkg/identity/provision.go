package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/tenant"
)

// maxUsernameAttempts bounds the collision-resolution loop. Past this many
// candidates something other than normal collisions is wrong.
const maxUsernameAttempts = 50

// Provisioner resolves users by email and creates them on first sight.
type Provisioner struct {
	store  Store
	logger *observability.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(store Store, logger *observability.Logger) *Provisioner {
	return &Provisioner{store: store, logger: logger}
}

// ResolveOrCreate returns the user for email, creating it when no row exists.
// The second return reports whether this call created the row. A uniqueness
// conflict during creation means a concurrent request won the race; the row
// it created is fetched and returned as if it had been found originally.
func (p *Provisioner) ResolveOrCreate(ctx context.Context, email string) (*User, bool, error) {
	user, err := p.store.GetByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, &authz.StoreError{Op: "user lookup", Err: err}
	}

	username, err := p.deriveUsername(ctx, email)
	if err != nil {
		return nil, false, err
	}

	user = &User{
		Email:       email,
		Username:    username,
		DefaultRole: authz.RoleOperator,
		Status:      UserStatusActive,
	}
	if err := p.store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			existing, ferr := p.store.GetByEmail(ctx, email)
			if ferr == nil {
				return existing, false, nil
			}
			// Username collision with a different email: retry the whole
			// derivation once against the now-changed namespace.
			if errors.Is(ferr, ErrNotFound) {
				return p.retryCreate(ctx, email)
			}
			return nil, false, &authz.StoreError{Op: "user re-fetch", Err: ferr}
		}
		return nil, false, &authz.StoreError{Op: "user create", Err: err}
	}

	p.logger.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("auto-provisioned user")
	return user, true, nil
}

func (p *Provisioner) retryCreate(ctx context.Context, email string) (*User, bool, error) {
	username, err := p.deriveUsername(ctx, email)
	if err != nil {
		return nil, false, err
	}
	user := &User{
		Email:       email,
		Username:    username,
		DefaultRole: authz.RoleOperator,
		Status:      UserStatusActive,
	}
	if err := p.store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			existing, ferr := p.store.GetByEmail(ctx, email)
			if ferr == nil {
				return existing, false, nil
			}
			return nil, false, &authz.StoreError{Op: "user re-fetch", Err: ferr}
		}
		return nil, false, &authz.StoreError{Op: "user create", Err: err}
	}
	return user, true, nil
}

// deriveUsername builds a unique username candidate from the email's local
// part, falling back to a domain suffix and then a numeric counter.
func (p *Provisioner) deriveUsername(ctx context.Context, email string) (string, error) {
	base := tenant.Sanitize(tenant.LocalPart(email))
	if base == "" {
		base = "user"
	}

	taken, err := p.store.UsernameTaken(ctx, base)
	if err != nil {
		return "", &authz.StoreError{Op: "username check", Err: err}
	}
	if !taken {
		return base, nil
	}

	withDomain := base
	if domain := tenant.Sanitize(tenant.Domain(email)); domain != "" {
		withDomain = base + "_" + domain
		taken, err = p.store.UsernameTaken(ctx, withDomain)
		if err != nil {
			return "", &authz.StoreError{Op: "username check", Err: err}
		}
		if !taken {
			return withDomain, nil
		}
	}

	for i := 2; i < maxUsernameAttempts; i++ {
		candidate := fmt.Sprintf("%s_%d", withDomain, i)
		taken, err = p.store.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", &authz.StoreError{Op: "username check", Err: err}
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to derive unique username for %q", email)
}
