// Package middleware provides HTTP middleware for identity resolution,
// tenant-context installation, request tracing, metrics, and rate limiting.
//
// # Overview
//
// Authentication happens at the edge proxy; this package trusts the identity
// headers the proxy forwards and turns them into a request-scoped tenant
// context. Every protected route runs behind IdentityMiddleware, which
// resolves (and if needed provisions) the caller and installs a tenant
// context on the request. RequireRole gates individual routes on the
// context's effective role.
//
// # Middleware Components
//
// RequestIDMiddleware: request correlation
//
//	router.Use(middleware.RequestIDMiddleware)
//
// IdentityMiddleware: identity + tenant context resolution
//
//	idmw := middleware.NewIdentityMiddleware(builder, metrics, logger)
//	router.Use(idmw.Handler)
//
// RequireRole: per-route role gate
//
//	router.Handle("/agents", middleware.RequireRole(metrics, authz.RoleEditor)(handler))
//
// MetricsMiddleware: HTTP request counters and latency histograms
//
// RateLimitMiddleware: Redis-backed limits with an in-memory fallback
package middleware
