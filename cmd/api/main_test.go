package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/Nanyonga-Rahmah/crm-landing-pages/internal/config"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

func TestSetupMetricsExposesCollectors(t *testing.T) {
	m := setupMetrics()
	if m.handler == nil || m.upstream == nil || m.listing == nil || m.transitions == nil {
		t.Fatalf("expected every collector group to be built")
	}

	m.upstream.ObserveRequest("leads.get", "ok", 20*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected runtime collectors to be exported")
	}
}

func TestBuildAppRequiresSecretInProduction(t *testing.T) {
	cfg := &appconfig.Config{Env: "production"}
	if _, err := buildApp(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected an error without SESSION_SECRET in production")
	}
}

func TestBuildAppInMemory(t *testing.T) {
	cfg := &appconfig.Config{
		Env:            "development",
		BackendAPIURL:  "http://127.0.0.1:1/api/v1/",
		PageSize:       5,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
	a, err := buildApp(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.close()

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected healthy app, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/lists/prospects", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rr.Code)
	}
}
