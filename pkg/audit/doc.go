// Package audit records security-relevant events: tenant-context builds,
// access denials, first-principal bootstrap, user provisioning, and
// membership changes.
//
// Events flow through the Logger interface into one or more sinks (database,
// file). Audit failures never fail the request that triggered them; sinks
// log and drop.
package audit
