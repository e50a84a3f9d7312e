// Package authz holds the fixed role set, the pure effective-role resolver,
// and the access gate that handlers call at their top.
//
// The resolver computes the single permission tier governing one caller
// inside one tenant for one request. Precedence, highest first:
//
//  1. system admin -> admin everywhere
//  2. the caller's own personal tenant -> admin when the workspace-manager
//     flag is set, editor otherwise
//  3. team tenant -> the explicit active membership role, or nothing
//
// The gate is deliberately explicit: every protected handler starts with a
// visible Require call instead of being wrapped by middleware, so the check
// is statically verifiable at the call site.
package authz
