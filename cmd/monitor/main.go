package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/routerops/routerops/internal/config"
	"github.com/routerops/routerops/internal/db"
	"github.com/routerops/routerops/internal/health"
	"github.com/routerops/routerops/internal/logging"
	"github.com/routerops/routerops/internal/metrics"
	"github.com/routerops/routerops/internal/monitor"
	"github.com/routerops/routerops/internal/router"
	"github.com/routerops/routerops/internal/tracing"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New("routerops-monitor")
	if err := cfg.Validate(); err != nil {
		logger.Plain().WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.InitTracing(ctx, "routerops-monitor")
	if err != nil {
		logger.Plain().WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdown()

	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		logger.Plain().WithError(err).Fatal("Database connect failed")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Plain().WithError(err).Fatal("Database migration failed")
	}

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	mux := http.NewServeMux()
	mux.Handle("/healthz", health.HTTPHandler(map[string]health.Check{
		"store": health.Postgres(pool),
	}))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: cfg.Monitor.HTTPPort, Handler: mux}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("Monitor HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("Monitor HTTP server failed")
		}
	}()

	m := monitor.New(cfg.Monitor, router.NewPGStore(pool), nil, logger)
	if err := m.Run(ctx); err != nil && err != context.Canceled {
		logger.Plain().WithError(err).Error("Monitor stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	logger.Plain().Info("Monitor stopped")
}
