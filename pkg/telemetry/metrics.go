package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vtree").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for diff and apply durations.
	// Default: sub-frame buckets from 100µs to 1s.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vtree",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.004, 0.008, 0.016, 0.033, 0.1, 0.25, 1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the reconciliation metrics. A nil *Metrics records nothing.
type Metrics struct {
	updatesTotal    *prometheus.CounterVec
	diffDuration    prometheus.Histogram
	applyDuration   prometheus.Histogram
	patchesApplied  *prometheus.CounterVec
	applyErrors     *prometheus.CounterVec
	slowUpdates     prometheus.Counter
	liveNodes       prometheus.Gauge
	listeners       prometheus.Gauge
	framesBroadcast prometheus.Counter
	watchClients    prometheus.Gauge
}

// NewMetrics creates and registers the metrics. It panics if a metric with the
// same name is already registered on the registry, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of tree updates",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		diffDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diff_duration_seconds",
			Help:        "Tree diff duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		applyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "apply_duration_seconds",
			Help:        "Patch application duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		patchesApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_applied_total",
			Help:        "Total number of patches applied by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		applyErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "apply_errors_total",
			Help:        "Total number of failed applies by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		slowUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "slow_updates_total",
			Help:        "Total number of updates exceeding the frame budget",
			ConstLabels: config.ConstLabels,
		}),

		liveNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_nodes",
			Help:        "Number of nodes in the last committed tree",
			ConstLabels: config.ConstLabels,
		}),

		listeners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listeners",
			Help:        "Number of listener handles held by the registry",
			ConstLabels: config.ConstLabels,
		}),

		framesBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_broadcast_total",
			Help:        "Total number of patch frames sent to watch clients",
			ConstLabels: config.ConstLabels,
		}),

		watchClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watch_clients",
			Help:        "Number of connected watch clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveDiff records the duration of one diff.
func (m *Metrics) ObserveDiff(d time.Duration) {
	if m == nil {
		return
	}
	m.diffDuration.Observe(d.Seconds())
}

// ObserveApply records one apply call. kind classifies err and is ignored
// when err is nil.
func (m *Metrics) ObserveApply(d time.Duration, patches []vdom.Patch, applied int, kind string, err error) {
	if m == nil {
		return
	}
	m.applyDuration.Observe(d.Seconds())
	for i := 0; i < applied && i < len(patches); i++ {
		m.patchesApplied.WithLabelValues(patches[i].Op.String()).Inc()
	}
	if err != nil {
		m.applyErrors.WithLabelValues(kind).Inc()
	}
}

// ObserveUpdate records the outcome of an update cycle.
func (m *Metrics) ObserveUpdate(err error, slow bool) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.updatesTotal.WithLabelValues(status).Inc()
	if slow {
		m.slowUpdates.Inc()
	}
}

// SetLiveNodes records the size of the committed tree.
func (m *Metrics) SetLiveNodes(n int) {
	if m == nil {
		return
	}
	m.liveNodes.Set(float64(n))
}

// SetListeners records the number of registered listener handles.
func (m *Metrics) SetListeners(n int) {
	if m == nil {
		return
	}
	m.listeners.Set(float64(n))
}

// RecordFrames records frames sent to watch clients.
func (m *Metrics) RecordFrames(count int) {
	if m == nil {
		return
	}
	m.framesBroadcast.Add(float64(count))
}

// RecordClientConnect records a watch client connecting.
func (m *Metrics) RecordClientConnect() {
	if m == nil {
		return
	}
	m.watchClients.Inc()
}

// RecordClientDisconnect records a watch client disconnecting.
func (m *Metrics) RecordClientDisconnect() {
	if m == nil {
		return
	}
	m.watchClients.Dec()
}
