// Package agents manages tenant-scoped agent registrations. Every read is
// filtered to the caller's active tenant and cross-tenant lookups surface as
// not-found.
package agents
