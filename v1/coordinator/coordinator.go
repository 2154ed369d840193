package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/testforge/reslock/v1/contention"
	"github.com/testforge/reslock/v1/coord"
	reserrors "github.com/testforge/reslock/v1/errors"
	"github.com/testforge/reslock/v1/eventbus"
	"github.com/testforge/reslock/v1/lockset"
	"github.com/testforge/reslock/v1/metrics"
	"github.com/testforge/reslock/v1/resource"
	"github.com/testforge/reslock/v1/task"
)

var tracer = otel.Tracer("github.com/testforge/reslock/v1/coordinator")

const (
	// DefaultLeaseTTL is the lease duration requested for every batch.
	DefaultLeaseTTL = 40 * time.Second
	// DefaultInitialBackoff is the first sleep of a blocking acquisition.
	DefaultInitialBackoff = 50 * time.Millisecond
	// DefaultMaxBackoff caps the doubling backoff of a blocking acquisition.
	DefaultMaxBackoff = 10 * time.Second
)

// Config carries the caller-owned configuration flags and tuning knobs.
// The zero value is a fully enabled coordinator with default timings.
type Config struct {
	// DisableLocking bypasses every operation in the core; everything
	// succeeds and nothing is validated, recorded or sent anywhere.
	DisableLocking bool
	// DisableRemote keeps the local bookkeeping but never contacts the
	// coordination service.
	DisableRemote bool
	// Verbose emits an operational log line for every acquire and release
	// attempt, success and failure. Swallowed transport errors are logged
	// regardless.
	Verbose bool

	LeaseTTL       time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Logger *slog.Logger
	// Bus, when set, receives best-effort acquired/released events.
	Bus eventbus.Bus
	// Contention, when set, records denied lease requests for diagnostics.
	Contention *contention.Tracker
	// Clock is the timer source for backoff sleeps, the system clock by
	// default.
	Clock Clock
}

// Coordinator validates resource claims and combines the local lock set
// with the external coordination service into single-attempt and blocking
// acquisition, symmetric release and shutdown-time invariant checking.
//
// Contention and transport failures surface as a false acquisition result;
// errors are reserved for invariant violations (wrapping
// errors.ErrInvariant) and context cancellation. The coordination service
// is trusted as the authoritative cross-process source of truth.
type Coordinator struct {
	cfg    Config
	client coord.Client
	log    *slog.Logger
	clock  Clock

	// mu spans the whole check -> remote round trip -> mutate sequence of
	// Acquire and Release: no other task may observe or mutate the held
	// set between the membership check and the group insert or removal.
	mu      sync.Mutex
	held    *lockset.Set
	session string
	inited  bool
}

// New returns a Coordinator using client as its coordination service.
// client may be nil when cfg disables locking or remote coordination.
func New(client coord.Client, cfg Config) *Coordinator {
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Coordinator{
		cfg:    cfg,
		client: client,
		log:    log,
		clock:  clock,
		held:   lockset.New(),
	}
}

// Session returns the coordinator's session identity, empty before Init.
func (c *Coordinator) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Init creates the empty lock set and connects the coordination client.
// It is idempotent per coordinator lifetime.
func (c *Coordinator) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inited {
		return nil
	}
	id, err := uuid.GenerateUUID()
	if err != nil {
		return err
	}
	c.session = id
	if c.useRemote() {
		if err := c.client.Connect(ctx); err != nil {
			return fmt.Errorf("connecting coordination service: %w", err)
		}
	}
	c.inited = true
	if c.cfg.Verbose {
		c.log.Info("reslock: coordinator initialized", "session", c.session,
			"remote", c.useRemote())
	}
	return nil
}

// Acquire makes a single, non-blocking attempt to take every resource t
// declares. It returns false when any resource is contended locally or
// remotely, and when the coordination service cannot be reached; such
// failures are logged and never escalate. A non-nil error means an
// invariant violation in the task's declarations.
func (c *Coordinator) Acquire(ctx context.Context, t task.Task) (bool, error) {
	if c.cfg.DisableLocking || len(t.Resources) == 0 {
		return true, nil
	}
	if err := resource.ValidateTask(t); err != nil {
		return false, err
	}
	metrics.AcquireAttempts.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Local state already proves contention; skip the network round trip.
	if name, held := c.held.HoldsAny(t.Resources); held {
		metrics.LocalConflicts.Inc()
		if c.cfg.Verbose {
			c.log.Info("reslock: resources already held locally",
				"task", t.ID, "blocked_by", name, "resources", t.Resources)
		}
		return false, nil
	}

	if c.useRemote() {
		rctx, span := tracer.Start(ctx, "Coordinator.Acquire",
			trace.WithAttributes(
				attribute.String("reslock.task", t.ID),
				attribute.Int("reslock.resources", len(t.Resources)),
			))
		cf, err := c.client.Acquire(rctx, t.Resources, c.cfg.LeaseTTL)
		span.End()
		if err != nil {
			metrics.TransportErrors.Inc()
			c.log.Warn("reslock: lease request failed, is the coordination service reachable?",
				"task", t.ID, "error", err)
			return false, nil
		}
		if cf != nil {
			metrics.RemoteConflicts.Inc()
			if c.cfg.Contention != nil {
				c.cfg.Contention.Record(*cf)
			}
			if c.cfg.Verbose {
				c.log.Info("reslock: lease denied",
					"task", t.ID, "resource", cf.Resource,
					"holder", cf.Holder, "remaining", cf.Remaining)
			}
			return false, nil
		}
	}

	// The whole batch was granted remotely; the local insert must cover
	// the whole batch too.
	c.held.AddAll(t.Resources)
	metrics.AcquireSuccesses.Inc()
	metrics.HeldLocks.Add(float64(len(t.Resources)))
	if c.cfg.Verbose {
		c.log.Info("reslock: acquired resources", "task", t.ID, "resources", t.Resources)
	}
	c.publish(ctx, eventbus.KindAcquired, t)
	return true, nil
}

// AcquireEventually blocks until Acquire succeeds, sleeping between
// attempts with exponential backoff from InitialBackoff, doubling up to
// MaxBackoff. There is no bound on attempts or elapsed time: an
// unreachable service or a permanently held resource retries forever.
// Bounding the wait is the caller's job, via ctx.
func (c *Coordinator) AcquireEventually(ctx context.Context, t task.Task) (bool, error) {
	backoff := c.cfg.InitialBackoff
	for attempt := 1; ; attempt++ {
		ok, err := c.Acquire(ctx, t)
		if ok || err != nil {
			return ok, err
		}
		metrics.Retries.Inc()
		if c.cfg.Verbose {
			c.log.Info("reslock: acquisition blocked, backing off",
				"task", t.ID, "attempt", attempt, "backoff", backoff)
		}
		select {
		case <-c.clock.After(backoff):
		case <-ctx.Done():
			return false, ctx.Err()
		}
		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

// Release gives back every resource t declares. The remote release is best
// effort: a conflict or transport failure is logged and never blocks the
// local cleanup, since leaked local bookkeeping would wrongly serialize
// future unrelated tasks. Releasing a resource this process does not hold
// is an invariant violation.
func (c *Coordinator) Release(ctx context.Context, t task.Task) error {
	if c.cfg.DisableLocking || len(t.Resources) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.useRemote() {
		rctx, span := tracer.Start(ctx, "Coordinator.Release",
			trace.WithAttributes(
				attribute.String("reslock.task", t.ID),
				attribute.Int("reslock.resources", len(t.Resources)),
			))
		cf, err := c.client.Release(rctx, t.Resources)
		span.End()
		switch {
		case err != nil:
			metrics.TransportErrors.Inc()
			c.log.Warn("reslock: lease release failed, is the coordination service reachable?",
				"task", t.ID, "error", err)
		case cf != nil:
			c.log.Warn("reslock: lease no longer ours on release",
				"task", t.ID, "resource", cf.Resource,
				"holder", cf.Holder, "remaining", cf.Remaining)
		}
	}

	if err := c.held.RemoveAll(t.Resources); err != nil {
		return fmt.Errorf("release for task %q: %w", t.ID, err)
	}
	metrics.Releases.Inc()
	metrics.HeldLocks.Sub(float64(len(t.Resources)))
	if c.cfg.Verbose {
		c.log.Info("reslock: released resources", "task", t.ID, "resources", t.Resources)
	}
	c.publish(ctx, eventbus.KindReleased, t)
	return nil
}

// Shutdown closes the coordination client and asserts that every acquired
// resource was released. A non-empty lock set is an invariant violation: a
// leaked lease would corrupt the shared resource namespace for later runs.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if c.cfg.DisableLocking {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inited && c.useRemote() {
		if err := c.client.Close(); err != nil {
			c.log.Warn("reslock: closing coordination client", "error", err)
		}
	}
	c.inited = false
	if !c.held.IsEmpty() {
		return fmt.Errorf("%w: %d resources still held at shutdown: %v",
			reserrors.ErrInvariant, c.held.Len(), c.held.Snapshot())
	}
	if c.cfg.Verbose {
		c.log.Info("reslock: coordinator shut down", "session", c.session)
	}
	return nil
}

func (c *Coordinator) useRemote() bool {
	return !c.cfg.DisableRemote && c.client != nil
}

// publish emits best-effort events; bus failures never escalate.
func (c *Coordinator) publish(ctx context.Context, kind eventbus.Kind, t task.Task) {
	if c.cfg.Bus == nil {
		return
	}
	for _, r := range t.Resources {
		evt := eventbus.Event{
			Kind:     kind,
			Resource: r,
			Holder:   c.session,
			TaskID:   t.ID,
		}
		if err := c.cfg.Bus.Publish(ctx, evt); err != nil {
			c.log.Warn("reslock: publishing lock event", "resource", r, "error", err)
			return
		}
	}
}
