// Package cli implements the flowdeckctl operational commands. The commands
// talk to the database directly and are meant for operators, not tenants:
// running migrations, inspecting bootstrap state, managing the system admin
// flag, and creating team tenants.
package cli
