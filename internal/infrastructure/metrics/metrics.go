// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spamguard"

// Metrics groups the service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Classifications  *prometheus.CounterVec
	ClassifyFailures *prometheus.CounterVec
	ClassifyLatency  prometheus.Histogram
	CacheLookups     *prometheus.CounterVec
	ArtifactFetches  *prometheus.CounterVec
	ArtifactLatency  *prometheus.HistogramVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classified texts by verdict.",
		}, []string{"verdict"}),
		ClassifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_failures_total",
			Help:      "Failed classifications by reason.",
		}, []string{"reason"}),
		ClassifyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_duration_seconds",
			Help:      "Time spent classifying one text.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdict_cache_lookups_total",
			Help:      "Verdict cache lookups by result.",
		}, []string{"result"}),
		ArtifactFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_fetches_total",
			Help:      "Remote artifact downloads by artifact, source and result.",
		}, []string{"artifact", "source", "result"}),
		ArtifactLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_fetch_duration_seconds",
			Help:      "Time spent downloading an artifact.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"artifact"}),
	}
}

// ObserveClassification records one successful classification
func (m *Metrics) ObserveClassification(verdict string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(verdict).Inc()
	m.ClassifyLatency.Observe(elapsed.Seconds())
}

// ObserveFailure records one failed classification
func (m *Metrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.ClassifyFailures.WithLabelValues(reason).Inc()
}

// ObserveCache records a verdict cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveFetch records one artifact download attempt sequence
func (m *Metrics) ObserveFetch(artifact, source string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.ArtifactFetches.WithLabelValues(artifact, source, result).Inc()
	m.ArtifactLatency.WithLabelValues(artifact).Observe(elapsed.Seconds())
}
