// Package session owns connection-level relay settings.
//
// Ownership boundary:
// - chunk size and frame limits
// - idle watchdog, connect window and bind retry timing
// - retry/backoff primitives
package session
