// Package monitoring exposes pipeline metrics to Prometheus.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gifburst"

// Session outcomes.
const (
	OutcomePersisted = "persisted"
	OutcomeFailed    = "failed"
	OutcomeEmpty     = "empty"
)

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	framesCaptured  prometheus.Counter
	sessions        *prometheus.CounterVec
	encodeDuration  prometheus.Histogram
	artifactBytes   prometheus.Histogram
	purgeFailures   prometheus.Counter
	purgedArtifacts prometheus.Counter
}

// NewMetrics registers the pipeline metrics with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		framesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_captured_total",
			Help:      "Frames captured across all sessions.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished capture sessions by outcome.",
		}, []string{"outcome"}),
		encodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Time spent encoding a frame sequence.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		artifactBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of persisted artifacts.",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
		purgeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purge_failures_total",
			Help:      "Cache purges that could not remove every entry.",
		}),
		purgedArtifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_entries_total",
			Help:      "Cache entries removed by purges.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.framesCaptured, m.sessions, m.encodeDuration, m.artifactBytes, m.purgeFailures, m.purgedArtifacts,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) FrameCaptured() {
	if m == nil {
		return
	}
	m.framesCaptured.Inc()
}

func (m *Metrics) SessionFinished(outcome string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Encoded(took time.Duration) {
	if m == nil {
		return
	}
	m.encodeDuration.Observe(took.Seconds())
}

func (m *Metrics) Persisted(size int64) {
	if m == nil {
		return
	}
	m.artifactBytes.Observe(float64(size))
}

func (m *Metrics) Purged(removed int, err error) {
	if m == nil {
		return
	}
	m.purgedArtifacts.Add(float64(removed))
	if err != nil {
		m.purgeFailures.Inc()
	}
}
