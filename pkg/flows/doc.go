// Package flows manages tenant-scoped workflow definitions.
package flows
