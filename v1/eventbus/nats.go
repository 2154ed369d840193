package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	nats "github.com/nats-io/nats.go"
)

const natsSubjectPrefix = "reslock."

type natsSubscription struct {
	sub   *nats.Subscription
	chans []chan Event
}

// NATSBus implements Bus using a NATS backend. Events are JSON payloads on
// the subject "reslock.<resource>".
type NATSBus struct {
	conn      *nats.Conn
	mu        sync.Mutex
	subs      map[string]*natsSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewNATSBus returns a new NATSBus using the provided connection.
func NewNATSBus(conn *nats.Conn) *NATSBus {
	return &NATSBus{
		conn: conn,
		subs: make(map[string]*natsSubscription),
	}
}

// Publish implements Bus.Publish.
func (b *NATSBus) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stamp(&evt)
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(natsSubjectPrefix+evt.Resource, data); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Subscribe implements Bus.Subscribe.
func (b *NATSBus) Subscribe(ctx context.Context, resource string) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan Event, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[resource]; ok {
		sub.chans = append(sub.chans, ch)
		return ch, nil
	}

	natsSub, err := b.conn.Subscribe(natsSubjectPrefix+resource, func(msg *nats.Msg) {
		var evt Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			return
		}
		b.mu.Lock()
		sub, ok := b.subs[resource]
		if !ok {
			b.mu.Unlock()
			return
		}
		chans := append([]chan Event(nil), sub.chans...)
		b.mu.Unlock()
		for _, c := range chans {
			select {
			case c <- evt:
				b.delivered.Add(1)
			default:
			}
		}
	})
	if err != nil {
		return nil, err
	}
	b.subs[resource] = &natsSubscription{sub: natsSub, chans: []chan Event{ch}}
	return ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *NATSBus) Unsubscribe(ctx context.Context, resource string, ch <-chan Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := b.subs[resource]
	if sub == nil {
		return nil
	}
	for i, c := range sub.chans {
		if c == ch {
			sub.chans[i] = sub.chans[len(sub.chans)-1]
			sub.chans = sub.chans[:len(sub.chans)-1]
			close(c)
			break
		}
	}
	if len(sub.chans) == 0 {
		delete(b.subs, resource)
		return sub.sub.Unsubscribe()
	}
	return nil
}

// BusMetrics returns the published and delivered counts.
func (b *NATSBus) BusMetrics() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}
