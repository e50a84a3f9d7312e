package authz

// TenantContext is the minimal view of a request's resolved tenant binding
// that the gate needs. pkg/tenantctx provides the concrete implementation.
type TenantContext interface {
	// EffectiveRole returns the single role resolved for the request's
	// primary tenant.
	EffectiveRole() Role

	// Primary returns the tenant the effective role was resolved for.
	Primary() string

	// Authorized reports whether tenantID is in the caller's authorized set.
	Authorized(tenantID string) bool
}

// Require succeeds iff the context's effective role is one of allowed.
// Handlers call it first thing; the failure message names required vs. actual
// role, which is safe because tenant validation already happened upstream.
func Require(tc TenantContext, allowed ...Role) error {
	actual := tc.EffectiveRole()
	for _, r := range allowed {
		if actual.Equal(r) {
			return nil
		}
	}
	return &ForbiddenError{Allowed: allowed, Actual: actual}
}

// SameTenantOrNotFound encodes the anti-enumeration policy: a resource owned
// by a tenant outside the caller's authorized set reads as not found, never
// as forbidden, so callers cannot probe for the existence of data they
// cannot see.
func SameTenantOrNotFound(tc TenantContext, resourceTenantID, resource string) error {
	if tc.Authorized(resourceTenantID) {
		return nil
	}
	return &NotFoundError{Resource: resource}
}

// RequireActiveTenant restricts mutations to resources owned by the caller's
// active tenant. The effective role was resolved for that one tenant, so it
// says nothing about what the caller may do in the rest of the authorized
// set. Resources outside the authorized set keep reading as not found;
// resources the caller can see but has not bound for this request are
// rejected with an ActiveTenantError.
func RequireActiveTenant(tc TenantContext, resourceTenantID, resource string) error {
	if err := SameTenantOrNotFound(tc, resourceTenantID, resource); err != nil {
		return err
	}
	if resourceTenantID != tc.Primary() {
		return &ActiveTenantError{TenantID: resourceTenantID}
	}
	return nil
}
