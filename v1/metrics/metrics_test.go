package metrics

import "testing"

func TestRegisterCoreMetrics(t *testing.T) {
	reg := NewRegistry()
	RegisterCoreMetrics(reg)

	AcquireAttempts.Inc()
	HeldLocks.Add(2)
	HeldLocks.Sub(1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"reslock_acquire_attempts_total",
		"reslock_acquire_success_total",
		"reslock_local_conflicts_total",
		"reslock_remote_conflicts_total",
		"reslock_transport_errors_total",
		"reslock_release_total",
		"reslock_retries_total",
		"reslock_held_locks",
	} {
		if !names[want] {
			t.Errorf("metric %q not registered", want)
		}
	}
}
