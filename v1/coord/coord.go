package coord

import (
	"context"
	"time"
)

// Conflict describes a denied lease request: the contended resource, the
// opaque identity of the current holder and how long its lease has left.
// Conflicts are transient diagnostics; they are logged, never stored by
// callers.
type Conflict struct {
	Resource  string
	Holder    string
	Remaining time.Duration
}

// Client grants and revokes time-leased claims on resource names shared
// across all cooperating processes. Every call has exactly three outcomes
// and callers must handle all of them:
//
//   - (nil, nil): the whole batch was granted or released.
//   - (*Conflict, nil): the service denied the batch; no lease changed.
//   - (nil, err): transport or server failure; the request outcome is unknown.
//
// Acquire must grant or deny the batch atomically. A partial grant is a
// violation of this contract, not something callers recover from.
type Client interface {
	// Connect establishes the connection to the coordination service.
	Connect(ctx context.Context) error

	// Acquire requests a lease of the given duration on every resource.
	Acquire(ctx context.Context, resources []string, ttl time.Duration) (*Conflict, error)

	// Release revokes this client's leases on the given resources. Leases
	// that already expired are silently ignored; a lease now held by
	// someone else yields a Conflict.
	Release(ctx context.Context, resources []string) (*Conflict, error)

	// Close tears the connection down. The client must not be used after
	// Close returns.
	Close() error
}
