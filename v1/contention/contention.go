// Package contention keeps the last conflict descriptor observed per
// resource, expiring each entry when the reported lease would. The tracker
// feeds pre-flight diagnostics and richer contention logs; it never
// influences acquisition decisions.
package contention

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/testforge/reslock/v1/coord"
)

// Minimum retention for conflicts whose remaining lease is unknown.
const minretention = time.Second

// Tracker records recently denied lease requests.
type Tracker struct {
	c *ristretto.Cache
}

// New returns a new Tracker.
func New() *Tracker {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 16,
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	return &Tracker{c: c}
}

// Record stores cf as the most recent conflict for its resource. The entry
// lives as long as the reported remaining lease.
func (t *Tracker) Record(cf coord.Conflict) {
	ttl := cf.Remaining
	if ttl < minretention {
		ttl = minretention
	}
	t.c.SetWithTTL(cf.Resource, cf, 1, ttl)
	t.c.Wait()
}

// Last returns the most recent unexpired conflict for resource.
func (t *Tracker) Last(resource string) (coord.Conflict, bool) {
	v, ok := t.c.Get(resource)
	if !ok {
		return coord.Conflict{}, false
	}
	cf, ok := v.(coord.Conflict)
	return cf, ok
}

// Close releases resources held by the tracker.
func (t *Tracker) Close() {
	t.c.Close()
}
