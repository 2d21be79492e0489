package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics covers calls made to the CRM backend.
type UpstreamMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	m := &UpstreamMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total requests sent to the CRM backend",
		}, []string{"operation", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of CRM backend requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// ObserveRequest records one backend call. Outcome is one of ok, transport,
// http or application.
func (m *UpstreamMetrics) ObserveRequest(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ListingMetrics covers the baseline snapshot cache.
type ListingMetrics struct {
	snapshotTotal *prometheus.CounterVec
	invalidations prometheus.Counter
}

func NewListingMetrics(reg prometheus.Registerer) *ListingMetrics {
	m := &ListingMetrics{
		snapshotTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "listing",
			Name:      "snapshot_lookups_total",
			Help:      "Baseline snapshot lookups by page kind and result",
		}, []string{"kind", "result"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "listing",
			Name:      "snapshot_invalidations_total",
			Help:      "Organization-wide snapshot invalidations",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.snapshotTotal, m.invalidations)
	return m
}

func (m *ListingMetrics) ObserveSnapshot(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.snapshotTotal.WithLabelValues(kind, result).Inc()
}

func (m *ListingMetrics) ObserveInvalidation() {
	if m == nil {
		return
	}
	m.invalidations.Inc()
}

// TransitionMetrics covers lead status transitions and deletions.
type TransitionMetrics struct {
	transitionsTotal *prometheus.CounterVec
}

func NewTransitionMetrics(reg prometheus.Registerer) *TransitionMetrics {
	m := &TransitionMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "leads",
			Name:      "transitions_total",
			Help:      "Lead status transitions by target and result",
		}, []string{"target", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal)
	return m
}

// ObserveTransition records a transition attempt; result is ok, invalid,
// rejected (not forward) or failed.
func (m *TransitionMetrics) ObserveTransition(target, result string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(target, result).Inc()
}
