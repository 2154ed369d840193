package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes lock event types.
type Kind string

const (
	KindAcquired Kind = "acquired"
	KindReleased Kind = "released"
)

// Event is a single lock state change, published after the change took
// effect. Holder is the opaque session identity of the publishing process.
type Event struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Resource string    `json:"resource"`
	Holder   string    `json:"holder"`
	TaskID   string    `json:"task_id"`
	At       time.Time `json:"at"`
}

// Bus fans lock events out to observers, keyed by resource name. Delivery
// is best effort: slow subscribers drop events rather than stall the
// publisher, which runs on the acquire/release path.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context, resource string) (<-chan Event, error)
	Unsubscribe(ctx context.Context, resource string, ch <-chan Event) error
}

// Metrics reports bus publish/delivery counts.
type Metrics struct {
	Published uint64
	Delivered uint64
}

// stamp fills the fields publishers commonly leave zero.
func stamp(evt *Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
}

// InMemoryBus is a local implementation of Bus, mainly for single-process
// runs and testing.
type InMemoryBus struct {
	mu        sync.Mutex
	subs      map[string][]chan Event
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewInMemoryBus returns a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]chan Event)}
}

// Publish implements Bus.Publish.
func (b *InMemoryBus) Publish(ctx context.Context, evt Event) error {
	stamp(&evt)
	b.mu.Lock()
	chans := append([]chan Event(nil), b.subs[evt.Resource]...)
	b.mu.Unlock()
	b.published.Add(1)
	for _, ch := range chans {
		select {
		case ch <- evt:
			b.delivered.Add(1)
		default:
		}
	}
	return nil
}

// Subscribe implements Bus.Subscribe.
func (b *InMemoryBus) Subscribe(ctx context.Context, resource string) (<-chan Event, error) {
	ch := make(chan Event, 1)
	b.mu.Lock()
	b.subs[resource] = append(b.subs[resource], ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), resource, ch)
	}()
	return ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *InMemoryBus) Unsubscribe(ctx context.Context, resource string, ch <-chan Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[resource]
	for i, c := range subs {
		if c == ch {
			subs[i] = subs[len(subs)-1]
			subs = subs[:len(subs)-1]
			b.subs[resource] = subs
			close(c)
			break
		}
	}
	if len(b.subs[resource]) == 0 {
		delete(b.subs, resource)
	}
	return nil
}

// BusMetrics returns the published and delivered counts.
func (b *InMemoryBus) BusMetrics() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}
