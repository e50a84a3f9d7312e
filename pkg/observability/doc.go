// Package observability provides structured logging, Prometheus metrics,
// health probes, panic recovery, and graceful shutdown for the flowdeck
// service.
//
// Logging is JSON over log/slog. Request-scoped fields (request id, user id)
// travel in the request context via pkg/contextkeys and are folded into the
// logger with FromContext.
package observability
