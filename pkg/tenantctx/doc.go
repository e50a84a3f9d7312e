// Package tenantctx builds and propagates the per-request tenant context:
// the one value binding an inbound request to exactly one authorized tenant
// and one effective permission level before any data access happens.
//
// A Context is constructed once per request by the Builder, is immutable
// afterwards, and travels with the request's context.Context, so concurrent
// requests sharing the process can never observe each other's tenant or
// token state.
package tenantctx
