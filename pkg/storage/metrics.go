package storage

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the storage Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vango").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for save duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the storage Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithMetricsNamespace sets the metrics namespace.
func WithMetricsNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithMetricsConstLabels sets constant labels for all metrics.
func WithMetricsConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithMetricsBuckets sets the save duration histogram buckets.
func WithMetricsBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithMetricsRegistry sets the Prometheus registry.
func WithMetricsRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vango",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for the storage subsystem.
type metrics struct {
	savesTotal     *prometheus.CounterVec
	saveFailures   *prometheus.CounterVec
	saveDuration   *prometheus.HistogramVec
	decodeFailures *prometheus.CounterVec
	broadcasts     *prometheus.CounterVec
}

// globalMetrics is nil until EnableMetrics is called; every record helper
// no-ops while it is nil, so instrumenting is strictly opt-in.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		savesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "storage",
			Name:        "saves_total",
			Help:        "Total number of values persisted to a storage backing",
			ConstLabels: config.ConstLabels,
		}, []string{"backing"}),

		saveFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "storage",
			Name:        "save_failures_total",
			Help:        "Total number of failed storage writes",
			ConstLabels: config.ConstLabels,
		}, []string{"backing"}),

		saveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   "storage",
			Name:        "save_duration_seconds",
			Help:        "Encode-and-write duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"backing"}),

		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "storage",
			Name:        "decode_failures_total",
			Help:        "Total number of stored values that failed to decode",
			ConstLabels: config.ConstLabels,
		}, []string{"backing"}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "storage",
			Name:        "broadcasts_total",
			Help:        "Total number of change broadcasts delivered to subscribers",
			ConstLabels: config.ConstLabels,
		}, []string{"backing"}),
	}
}

// EnableMetrics registers the storage metrics and turns on recording.
//
// Metrics collected:
//   - vango_storage_saves_total: Counter of persisted values by backing
//   - vango_storage_save_failures_total: Counter of failed writes by backing
//   - vango_storage_save_duration_seconds: Histogram of write latency
//   - vango_storage_decode_failures_total: Counter of undecodable stored values
//   - vango_storage_broadcasts_total: Counter of change broadcasts by backing
//
// Calling it more than once keeps the first registration.
func EnableMetrics(opts ...MetricsOption) {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	globalMetricsMu.Unlock()
}

// recordSave records one write attempt against a backing.
func recordSave(backing string, elapsed time.Duration, err error) {
	if globalMetrics == nil {
		return
	}
	globalMetrics.savesTotal.WithLabelValues(backing).Inc()
	globalMetrics.saveDuration.WithLabelValues(backing).Observe(elapsed.Seconds())
	if err != nil {
		globalMetrics.saveFailures.WithLabelValues(backing).Inc()
	}
}

// recordDecodeFailure records a stored value that could not be decoded.
func recordDecodeFailure(backing string) {
	if globalMetrics == nil {
		return
	}
	globalMetrics.decodeFailures.WithLabelValues(backing).Inc()
}

// recordBroadcast records one change broadcast delivered to subscribers.
func recordBroadcast(backing string) {
	if globalMetrics == nil {
		return
	}
	globalMetrics.broadcasts.WithLabelValues(backing).Inc()
}
