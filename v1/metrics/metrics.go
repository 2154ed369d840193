package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireAttempts tracks every acquisition attempt that reached the core.
	AcquireAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reslock_acquire_attempts_total",
		Help: "Total number of lock acquisition attempts",
	})
	// AcquireSuccesses tracks acquisitions that took all requested resources.
	AcquireSuccesses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reslock_acquire_success_total",
		Help: "Total number of successful lock acquisitions",
	})
	// LocalConflicts tracks acquisitions short-circuited by the local set.
	LocalConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reslock_local_conflicts_total",
		Help: "Total number of acquisitions blocked by locally held resources",
	})
	// RemoteConflicts tracks lease requests denied by the coordination service.
	RemoteConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reslock_remote_conflicts_total",
		Help: "Total number of lease requests denied by the coordination service",
	})
	// TransportErrors tracks failed round trips to the coordination service.
	TransportErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reslock_transport_errors_total",
		Help: "Total number of coordination service transport failures",
	})
	// Releases tracks completed releases.
	Releases = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reslock_release_total",
		Help: "Total number of lock releases",
	})
	// Retries tracks backoff sleeps taken by blocking acquisitions.
	Retries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reslock_retries_total",
		Help: "Total number of backoff retries during blocking acquisition",
	})
	// HeldLocks reports the number of resources currently held locally.
	HeldLocks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reslock_held_locks",
		Help: "Current number of locally held resources",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers reslock core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		AcquireAttempts, AcquireSuccesses,
		LocalConflicts, RemoteConflicts, TransportErrors,
		Releases, Retries, HeldLocks,
	)
}
