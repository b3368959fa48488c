package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "halti_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationPassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "halti_reconciliation_passes_total",
			Help: "Total number of reconciliation passes completed",
		},
	)

	ContainersStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "halti_containers_started_total",
			Help: "Total number of containers started by the reconciler",
		},
	)

	ContainersStoppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "halti_containers_stopped_total",
			Help: "Total number of containers stopped by the reconciler",
		},
	)

	ContainerStartFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "halti_container_start_failures_total",
			Help: "Total number of container create/start failures reported to the master",
		},
	)

	ImagePullFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "halti_image_pull_failures_total",
			Help: "Total number of image pull failures reported to the master",
		},
	)

	// Handoff metrics
	SnapshotsDisplacedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "halti_snapshots_displaced_total",
			Help: "Total number of desired-state snapshots discarded unused by a newer Offer",
		},
	)

	// Supervisor metrics
	HeartbeatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "halti_heartbeat_duration_seconds",
			Help:    "Time taken for a heartbeat round trip in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	HeartbeatFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "halti_heartbeat_failures_total",
			Help: "Total number of heartbeat round trips that failed or timed out",
		},
	)

	ReconcilerAlive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "halti_reconciler_worker_alive",
			Help: "Whether the reconciler worker is alive (1) or has died (0)",
		},
	)
)

func init() {
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationPassesTotal)
	prometheus.MustRegister(ContainersStartedTotal)
	prometheus.MustRegister(ContainersStoppedTotal)
	prometheus.MustRegister(ContainerStartFailuresTotal)
	prometheus.MustRegister(ImagePullFailuresTotal)
	prometheus.MustRegister(SnapshotsDisplacedTotal)
	prometheus.MustRegister(HeartbeatDuration)
	prometheus.MustRegister(HeartbeatFailuresTotal)
	prometheus.MustRegister(ReconcilerAlive)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
