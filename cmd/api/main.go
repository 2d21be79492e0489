package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/api/router"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/app/bootstrap"
	appconfig "github.com/Nanyonga-Rahmah/crm-landing-pages/internal/config"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/dashboard"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	httpmiddleware "github.com/Nanyonga-Rahmah/crm-landing-pages/internal/http/middleware"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/leads"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/listing"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/notify"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/observability/metrics"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/realtime"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/records"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// appMetrics groups the collectors registered at startup.
type appMetrics struct {
	handler     http.Handler
	upstream    *metrics.UpstreamMetrics
	listing     *metrics.ListingMetrics
	transitions *metrics.TransitionMetrics
}

func setupMetrics() appMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return appMetrics{
		handler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		upstream:    metrics.NewUpstreamMetrics(reg),
		listing:     metrics.NewListingMetrics(reg),
		transitions: metrics.NewTransitionMetrics(reg),
	}
}

// app is everything the server owns and must release on shutdown.
type app struct {
	handler     http.Handler
	bus         *events.Bus
	rateLimiter *httpmiddleware.RateLimiter
	closers     []func()
}

func (a *app) close() {
	a.rateLimiter.Close()
	a.bus.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("SESSION_SECRET is required in production")
		}
		logger.Warn("SESSION_SECRET not set; using an insecure development secret")
		cfg.SessionSecret = "development-only-secret"
	}

	a := &app{}
	m := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		logger.Info("redis enabled", "addr", cfg.RedisAddr)
	} else {
		logger.Info("redis disabled; sessions and snapshots kept in memory")
	}
	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
		logger.Info("postgres journal enabled")
	}

	client := crmapi.NewClient(cfg.BackendAPIURL, cfg.UpstreamTimeout, logger, crmapi.WithMetrics(m.upstream))

	manager := session.NewManager(bootstrap.BuildSessionStore(redisClient), session.ManagerConfig{
		Secret:       cfg.SessionSecret,
		TTL:          cfg.SessionTTL,
		CookieName:   cfg.SessionCookieName,
		CookieSecure: cfg.SessionCookieSecure,
	}, logger)

	cache := listing.NewCache(bootstrap.BuildSnapshotStore(redisClient), cfg.SnapshotTTL, m.listing, logger)
	journal := bootstrap.BuildJournal(pool)
	hub := realtime.NewHub(logger)

	sender, senderKind := bootstrap.BuildEmailSender(cfg, logger)
	logger.Info("sale notifications configured", "sender", senderKind, "inbox_set", cfg.SalesInbox != "")
	notifier := notify.NewSaleNotifier(sender, cfg.SalesInbox, logger)

	bus := bootstrap.BuildEventBus(cache, journal, hub, notifier, logger)
	a.bus = bus

	a.rateLimiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	a.handler = router.New(&router.Config{
		Logger:             logger,
		Sessions:           manager,
		AuthHandler:        session.NewHandler(client, manager, logger),
		ListingHandler:     listing.NewHandler(listing.NewListers(client, cache, cfg.PageSize), manager, logger),
		LeadsHandler:       leads.NewHandler(leads.NewService(client, bus, journal, m.transitions, logger), logger),
		DashboardHandler:   dashboard.NewHandler(dashboard.NewService(client, logger), logger),
		RecordsHandler:     records.NewHandler(records.NewService(client, cache, logger), logger),
		RealtimeHandler:    realtime.NewHandler(hub, cfg.CORSAllowedOrigins, logger),
		MetricsHandler:     m.handler,
		RateLimiter:        a.rateLimiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	return a, nil
}

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting crm gateway",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.BackendAPIURL,
	)

	a, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	// WriteTimeout stays unset; the realtime socket is long lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	a.close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
