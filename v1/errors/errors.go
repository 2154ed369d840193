// Package errors defines the sentinel errors shared across reslock.
package errors

import "errors"

var (
	// ErrInvariant marks programmer or configuration errors: malformed
	// resource names, releasing a resource that was never acquired, a
	// non-empty lock set at shutdown. Never caused by contention.
	ErrInvariant = errors.New("invariant violation")

	ErrTimeout          = errors.New("timeout")
	ErrConnectionClosed = errors.New("connection closed")
)
