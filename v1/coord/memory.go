package coord

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	reserrors "github.com/testforge/reslock/v1/errors"
)

type lease struct {
	holder  string
	expires time.Time
}

// MemoryClient implements Client in process memory. It backs single-process
// runs that still want lease semantics, and tests that need a coordination
// service without a network dependency. Several MemoryClient-derived clients
// can share one store via Sibling, emulating separate processes.
type MemoryClient struct {
	store *memoryStore
	token string

	mu     sync.Mutex
	closed bool
}

// memoryStore is the lease table shared by sibling clients.
type memoryStore struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewMemory returns a new in-memory coordination client.
func NewMemory() *MemoryClient {
	return &MemoryClient{
		store: &memoryStore{
			leases: make(map[string]lease),
			now:    time.Now,
		},
		token: uuid.NewString(),
	}
}

// Sibling returns a new client with its own holder token sharing this
// client's lease table, as a second process sharing the service would.
func (c *MemoryClient) Sibling() *MemoryClient {
	return &MemoryClient{store: c.store, token: uuid.NewString()}
}

// Token returns the holder identity this client presents to the store.
func (c *MemoryClient) Token() string {
	return c.token
}

// Connect implements Client.Connect.
func (c *MemoryClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return reserrors.ErrConnectionClosed
	}
	return nil
}

// Acquire implements Client.Acquire.
func (c *MemoryClient) Acquire(ctx context.Context, resources []string, ttl time.Duration) (*Conflict, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, r := range resources {
		l, ok := s.leases[r]
		if !ok || !now.Before(l.expires) {
			continue
		}
		if l.holder != c.token {
			return &Conflict{Resource: r, Holder: l.holder, Remaining: l.expires.Sub(now)}, nil
		}
	}
	expires := now.Add(ttl)
	for _, r := range resources {
		s.leases[r] = lease{holder: c.token, expires: expires}
	}
	return nil, nil
}

// Release implements Client.Release.
func (c *MemoryClient) Release(ctx context.Context, resources []string) (*Conflict, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, r := range resources {
		l, ok := s.leases[r]
		if !ok || !now.Before(l.expires) {
			continue
		}
		if l.holder != c.token {
			return &Conflict{Resource: r, Holder: l.holder, Remaining: l.expires.Sub(now)}, nil
		}
	}
	for _, r := range resources {
		if l, ok := s.leases[r]; ok && l.holder == c.token {
			delete(s.leases, r)
		}
	}
	return nil, nil
}

// Close implements Client.Close.
func (c *MemoryClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return reserrors.ErrConnectionClosed
	}
	c.closed = true
	return nil
}

func (c *MemoryClient) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return reserrors.ErrConnectionClosed
	}
	return nil
}
