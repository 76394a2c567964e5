package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/routerops/routerops/internal/backup"
	"github.com/routerops/routerops/internal/config"
	"github.com/routerops/routerops/internal/db"
	"github.com/routerops/routerops/internal/health"
	"github.com/routerops/routerops/internal/logging"
	"github.com/routerops/routerops/internal/metrics"
	"github.com/routerops/routerops/internal/restconf"
	"github.com/routerops/routerops/internal/router"
	"github.com/routerops/routerops/internal/task"
	"github.com/routerops/routerops/internal/tracing"
	"github.com/routerops/routerops/internal/worker"
)

const deviceTimeout = 20 * time.Second

func main() {
	cfg := config.FromEnv()
	logger := logging.New("routerops-worker")
	if err := cfg.Validate(); err != nil {
		logger.Plain().WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.InitTracing(ctx, "routerops-worker")
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
		"queue": health.Nsqd(nsqdHTTPAddr(cfg)),
	}))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: cfg.Worker.HTTPPort, Handler: mux}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("Worker HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("Worker HTTP server failed")
		}
	}()

	startBacklogMonitor(cfg, logger)

	deps := worker.Deps{
		Tasks:   task.NewPGStore(pool),
		Routers: router.NewPGStore(pool),
		NewDevice: func(host, username, password string) worker.DeviceClient {
			return restconf.NewService(restconf.NewClient(host, username, password, deviceTimeout))
		},
		NewBackup: func(host, username, password string) worker.ConfigPuller {
			return backup.NewService(host, username, password, deviceTimeout, cfg.Backup.ConfigDir, logger)
		},
		Notify: worker.LogNotifier(logger),
		Log:    logger,
	}

	w, err := worker.New(cfg, deps)
	if err != nil {
		logger.Plain().WithError(err).Fatal("Worker setup failed")
	}

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		logger.Plain().WithError(err).Error("Worker stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	logger.Plain().Info("Worker stopped")
}

// nsqdHTTPAddr derives nsqd's HTTP address from its TCP address; nsqd
// serves HTTP on the port next to its TCP port.
func nsqdHTTPAddr(cfg config.Config) string {
	return strings.Replace(cfg.NSQ.NsqdTCPAddr, ":4150", ":4151", 1)
}

// startBacklogMonitor polls nsqd's stats endpoint and exports the depth of
// the task channel as a gauge.
func startBacklogMonitor(cfg config.Config, logger *logging.Logger) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		httpClient := &http.Client{Timeout: 5 * time.Second}

		for range ticker.C {
			resp, err := httpClient.Get(fmt.Sprintf("http://%s/stats?format=json", nsqdHTTPAddr(cfg)))
			if err != nil {
				logger.Plain().WithError(err).Error("Failed to get NSQ stats")
				continue
			}

			var stats struct {
				Topics []struct {
					Name     string `json:"topic_name"`
					Channels []struct {
						Name  string `json:"channel_name"`
						Depth int64  `json:"depth"`
					} `json:"channels"`
				} `json:"topics"`
			}

			if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
				resp.Body.Close()
				logger.Plain().WithError(err).Error("Failed to decode NSQ stats")
				continue
			}
			resp.Body.Close()

			for _, topic := range stats.Topics {
				if topic.Name != cfg.NSQ.TaskTopic {
					continue
				}
				for _, channel := range topic.Channels {
					if channel.Name == cfg.NSQ.WorkerChannel {
						metrics.UpdateQueueBacklog(float64(channel.Depth))
					}
				}
			}
		}
	}()
}
