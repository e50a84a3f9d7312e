// Package api wires the HTTP surface: the versioned router, the middleware
// chain, and the handlers that translate requests into service calls.
//
// All /api/v1 routes run behind identity resolution; handlers can assume a
// tenant context is installed on the request. Error responses follow one
// mapping everywhere: unauthenticated 401, tenant denied or insufficient
// role 403, cross-tenant reads 404, store outages 503.
package api
