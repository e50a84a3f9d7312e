// Package config loads application configuration from FLOWDECK_* environment
// variables and validates it before the server starts.
package config
