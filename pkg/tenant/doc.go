// Package tenant defines tenant (group) identifiers and the deterministic
// derivation rules that map emails and email domains onto canonical tenant ids.
//
// Two id shapes exist:
//   - team tenants: the email domain with dots replaced by underscores
//     ("example.com" -> "example_com")
//   - personal tenants: "user_" + the sanitized full email
//     ("user@example.com" -> "user_user_example_com")
//
// Derivation is pure and total, so a caller's own personal tenant id can be
// recognized without a database round-trip.
package tenant
