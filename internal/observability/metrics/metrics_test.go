package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestUpstreamMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewUpstreamMetrics(reg)
	m.ObserveRequest("leads.get", "ok", 20*time.Millisecond)
	m.ObserveRequest("leads.get", "ok", 30*time.Millisecond)
	m.ObserveRequest("leads.get", "http", 10*time.Millisecond)

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("leads.get", "ok")); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("leads.get", "http")); got != 1 {
		t.Fatalf("expected 1 http failure, got %v", got)
	}
}

func TestListingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewListingMetrics(reg)
	m.ObserveSnapshot("prospects", false)
	m.ObserveSnapshot("prospects", true)
	m.ObserveSnapshot("prospects", true)
	m.ObserveInvalidation()

	if got := testutil.ToFloat64(m.snapshotTotal.WithLabelValues("prospects", "hit")); got != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.invalidations); got != 1 {
		t.Fatalf("expected 1 invalidation, got %v", got)
	}
}

func TestTransitionMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTransitionMetrics(reg)
	m.ObserveTransition("CLOSED", "invalid")

	if got := testutil.ToFloat64(m.transitionsTotal.WithLabelValues("CLOSED", "invalid")); got != 1 {
		t.Fatalf("expected 1 invalid transition, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var u *UpstreamMetrics
	u.ObserveRequest("op", "ok", time.Second)
	var l *ListingMetrics
	l.ObserveSnapshot("leads", true)
	l.ObserveInvalidation()
	var tr *TransitionMetrics
	tr.ObserveTransition("LEAD", "submitted")
}
