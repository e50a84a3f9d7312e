// Package groups manages tenant records and team rosters. Team tenants are
// created explicitly by administrators; personal tenants exist implicitly and
// are only materialized here when something needs a backing row.
package groups
