package wsbackend

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quartzui/quartz/engine"
)

// MetricsConfig configures the Prometheus implementation of
// engine.Metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "quartz").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for commit-phase duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Metrics is the Prometheus-backed engine.Metrics: frame counts by lane
// bitset, coroutine resumes, per-phase effect counts and durations, and a
// scope-memory histogram.
type Metrics struct {
	framesTotal      *prometheus.CounterVec
	resumesTotal     prometheus.Counter
	effectsCommitted *prometheus.CounterVec
	commitDuration   *prometheus.HistogramVec
	scopeMemory      prometheus.Histogram
}

// NewMetrics registers and returns the collectors.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "quartz"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if cfg.Buckets == nil {
		cfg.Buckets = prometheus.DefBuckets
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		framesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "frames_total",
			Help:        "Render frames committed, labeled by the lane bitset they carried.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"lanes"}),
		resumesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "coroutine_resumes_total",
			Help:        "Coroutine resumes across all frames.",
			ConstLabels: cfg.ConstLabels,
		}),
		effectsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "effects_committed_total",
			Help:        "Effects committed, labeled by commit phase.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"phase"}),
		commitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "commit_phase_duration_seconds",
			Help:        "Wall time per commit phase.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"phase"}),
		scopeMemory: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "scope_memory_bytes",
			Help:        "Approximate render-scope memory footprint sampled at resume.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}
}

// FrameCompleted implements engine.Metrics.
func (m *Metrics) FrameCompleted(lanes engine.Lanes) {
	m.framesTotal.WithLabelValues(fmt.Sprintf("%06b", uint8(lanes))).Inc()
}

// CoroutineResumed implements engine.Metrics.
func (m *Metrics) CoroutineResumed() { m.resumesTotal.Inc() }

// ObserveCommitPhase implements engine.Metrics.
func (m *Metrics) ObserveCommitPhase(phase engine.Phase, n int, seconds float64) {
	m.effectsCommitted.WithLabelValues(phase.String()).Add(float64(n))
	m.commitDuration.WithLabelValues(phase.String()).Observe(seconds)
}

// ObserveScopeMemory implements engine.Metrics.
func (m *Metrics) ObserveScopeMemory(bytes int64) {
	m.scopeMemory.Observe(float64(bytes))
}
