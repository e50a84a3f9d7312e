package authz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated means no identity signal was present at all. Maps to 401.
var ErrUnauthenticated = errors.New("authentication required")

// AccessDeniedError means the identity is valid but the requested tenant
// binding is not. The message names only the rejected tenant id; it never
// reveals the caller's authorized set or why another tenant would be valid.
type AccessDeniedError struct {
	TenantID string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to tenant %q", e.TenantID)
}

// IsAccessDenied reports whether err is a tenant-binding rejection.
func IsAccessDenied(err error) bool {
	var ade *AccessDeniedError
	return errors.As(err, &ade)
}

// ForbiddenError means the tenant binding is valid but the effective role is
// insufficient for the attempted action. Only produced after tenant
// validation, so naming required vs. actual roles leaks nothing cross-tenant.
type ForbiddenError struct {
	Allowed []Role
	Actual  Role
}

func (e *ForbiddenError) Error() string {
	names := make([]string, len(e.Allowed))
	for i, r := range e.Allowed {
		names[i] = string(r)
	}
	return fmt.Sprintf("requires role %s, caller has %q", strings.Join(names, " or "), string(e.Actual))
}

// IsForbidden reports whether err is a role-insufficiency rejection.
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// ActiveTenantError means the resource lives in a tenant the caller is
// authorized for but has not bound as the active tenant for this request.
// Naming the tenant is safe here: the caller already sees it in their
// authorized set.
type ActiveTenantError struct {
	TenantID string
}

func (e *ActiveTenantError) Error() string {
	return fmt.Sprintf("operation requires tenant %q as the active tenant", e.TenantID)
}

// IsActiveTenantMismatch reports whether err is an active-tenant rejection.
func IsActiveTenantMismatch(err error) bool {
	var ate *ActiveTenantError
	return errors.As(err, &ate)
}

// NotFoundError is the anti-enumeration outcome: a resource outside the
// caller's authorized tenants reads as nonexistent, never as forbidden.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// IsNotFound reports whether err is a not-found outcome.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// ErrInternalConsistency indicates an authorized tenant yielded no resolvable
// role. That contradicts membership enumeration and is a bug, not a user
// error; it surfaces as a generic server fault.
var ErrInternalConsistency = errors.New("internal consistency fault: authorized tenant has no resolvable role")

// StoreError wraps an identity/membership store round-trip failure. The core
// performs no retries; the request boundary may retry once.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreUnavailable reports whether err is a store round-trip failure.
func IsStoreUnavailable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
