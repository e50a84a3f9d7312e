// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and request parsing.
//
// The one domain-aware piece is WriteAuthzError, which maps the authorization
// error taxonomy onto HTTP statuses: unauthenticated -> 401, tenant binding
// rejected or role insufficient -> 403, anti-enumeration not-found -> 404,
// store unavailable -> 503, internal consistency fault -> 500.
package httputil
