// Package membership provides read access to (group, role) pairs for a user,
// plus the mutation paths team-tenant management uses. At most one active
// membership row exists per (user, group) pair; the role on that row is the
// sole source of truth for team-tenant permission.
package membership
