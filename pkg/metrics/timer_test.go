package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNewTimer tests timer creation, as done at the top of
// supervisor.tick before the heartbeat round trip.
func TestNewTimer(t *testing.T) {
	timer := NewTimer()

	if timer == nil {
		t.Fatal("NewTimer() returned nil")
	}
	if timer.start.IsZero() {
		t.Error("NewTimer() start time is zero")
	}
}

// TestTimerDuration mirrors the elapsed-time math supervisor.tick and
// worker.Run rely on: Duration must reflect the time actually spent,
// not the time at timer creation.
func TestTimerDuration(t *testing.T) {
	timer := NewTimer()

	sleepDuration := 20 * time.Millisecond
	time.Sleep(sleepDuration)

	duration := timer.Duration()
	if duration < sleepDuration {
		t.Errorf("Duration() = %v, want >= %v", duration, sleepDuration)
	}
}

// TestTimerObserveDurationHeartbeat exercises the exact call worker
// supervisor.tick makes: time a heartbeat round trip and observe it
// into HeartbeatDuration. A fresh histogram is used so the test
// doesn't depend on global registration order or prior observations.
func TestTimerObserveDurationHeartbeat(t *testing.T) {
	heartbeat := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_heartbeat_duration_seconds",
		Help:    "shadow of halti_heartbeat_duration_seconds for this test",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDuration(heartbeat)

	if got := testutil.CollectAndCount(heartbeat); got != 1 {
		t.Errorf("CollectAndCount(heartbeat) = %d, want 1", got)
	}
}

// TestTimerObserveDurationReconciliation exercises the call
// worker.Run makes around reconciler.Reconcile: time a reconciliation
// pass and observe it into ReconciliationDuration, regardless of
// whether Reconcile returned an error.
func TestTimerObserveDurationReconciliation(t *testing.T) {
	reconciliation := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_reconciliation_duration_seconds",
		Help:    "shadow of halti_reconciliation_duration_seconds for this test",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	timer.ObserveDuration(reconciliation) // observed unconditionally, as worker.Run does before checking err

	if got := testutil.CollectAndCount(reconciliation); got != 1 {
		t.Errorf("CollectAndCount(reconciliation) = %d, want 1", got)
	}
}

// TestTimerMultipleCallsIndependent verifies that two Timers created a
// measurable interval apart, as happens when worker.Run loops calling
// NewTimer on every pass, never share state.
func TestTimerMultipleCallsIndependent(t *testing.T) {
	timer1 := NewTimer()
	time.Sleep(20 * time.Millisecond)
	timer2 := NewTimer()
	time.Sleep(20 * time.Millisecond)

	duration1 := timer1.Duration()
	duration2 := timer2.Duration()

	if duration1 <= duration2 {
		t.Errorf("timer1 should have the longer duration: timer1=%v, timer2=%v", duration1, duration2)
	}
}

// TestTimerObserveDurationDoesNotMutateTimer checks that observing a
// duration is read-only: the supervisor calls ObserveDuration once per
// tick but never re-uses the same Timer across ticks, and a bug that
// reset start on observation would silently corrupt a later Duration
// call if it ever did.
func TestTimerObserveDurationDoesNotMutateTimer(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_observe_no_mutate_seconds",
		Help:    "test",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	before := timer.Duration()

	timer.ObserveDuration(histogram)

	after := timer.Duration()
	if after < before {
		t.Errorf("Duration() after ObserveDuration() went backwards: before=%v, after=%v", before, after)
	}
}
