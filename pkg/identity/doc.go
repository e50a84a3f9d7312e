// Package identity manages user records: lookup by forwarded email,
// auto-provisioning on first sight, and the one-time first-principal
// bootstrap that promotes the very first user to system admin.
//
// Both provisioning and bootstrap are optimistic about races: the write is
// attempted, and a uniqueness conflict means a concurrent request won, so the
// loser re-reads the winner's row and proceeds as if it had been found
// originally. Neither path ever fails a request because of the race itself.
package identity
