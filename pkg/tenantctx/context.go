package tenantctx

import (
	"context"
	"sort"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/contextkeys"
	"github.com/flowdeck/flowdeck/pkg/tenant"
)

// Context is the request-scoped tenant binding. All fields are unexported;
// once built it cannot be mutated, only read.
type Context struct {
	userID      string
	email       string
	domain      string
	primary     string
	role        authz.Role
	systemAdmin bool
	authorized  map[string]struct{}
	accessToken string
}

// New constructs a Context with a fixed binding. The builder is the normal
// path on the request plane; New exists for tools and tests that need a
// known-good binding without store round-trips. primary is always included in
// the authorized set.
func New(userID, email, primary string, role authz.Role, systemAdmin bool, authorizedTenants []string, accessToken string) *Context {
	authorized := make(map[string]struct{}, len(authorizedTenants)+1)
	authorized[primary] = struct{}{}
	for _, id := range authorizedTenants {
		authorized[id] = struct{}{}
	}
	return &Context{
		userID:      userID,
		email:       email,
		domain:      tenant.Domain(email),
		primary:     primary,
		role:        role,
		systemAdmin: systemAdmin,
		authorized:  authorized,
		accessToken: accessToken,
	}
}

// UserID returns the caller's user id.
func (c *Context) UserID() string { return c.userID }

// Email returns the caller's email.
func (c *Context) Email() string { return c.email }

// Domain returns the caller's email domain.
func (c *Context) Domain() string { return c.domain }

// Primary returns the tenant id selected for this request. It is always an
// element of the authorized set.
func (c *Context) Primary() string { return c.primary }

// EffectiveRole returns the single role resolved for the primary tenant.
func (c *Context) EffectiveRole() authz.Role { return c.role }

// IsSystemAdmin reports whether the caller holds the system-wide admin flag.
// It is independent of the primary tenant.
func (c *Context) IsSystemAdmin() bool { return c.systemAdmin }

// Authorized reports whether tenantID is in the caller's authorized set.
func (c *Context) Authorized(tenantID string) bool {
	_, ok := c.authorized[tenantID]
	return ok
}

// AuthorizedTenants returns a sorted copy of the authorized set.
func (c *Context) AuthorizedTenants() []string {
	ids := make([]string, 0, len(c.authorized))
	for id := range c.authorized {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AccessToken returns the delegated upstream token, or "". The token is
// opaque: passed through to downstream platform calls, never interpreted.
func (c *Context) AccessToken() string { return c.accessToken }

var _ authz.TenantContext = (*Context)(nil)

// Install attaches tc (and its delegated token) to ctx for everything the
// request transitively invokes. Callers must only install fully built
// contexts; a cancelled resolution never reaches this point.
func Install(ctx context.Context, tc *Context) context.Context {
	ctx = contextkeys.WithTenant(ctx, tc)
	ctx = contextkeys.WithUserID(ctx, tc.userID)
	ctx = contextkeys.WithAccessToken(ctx, tc.accessToken)
	return ctx
}

// FromContext retrieves the installed tenant context.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextkeys.TenantKey).(*Context)
	return tc, ok && tc != nil
}
