package coordinator

import "time"

// Clock abstracts timer creation so the backoff sequence can be tested
// without wall-clock sleeps.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
