package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/routerops/routerops/internal/logging"
	"github.com/routerops/routerops/internal/metrics"
)

// Per-channel detail beyond the backlog gauge shared with the worker.
var (
	channelDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "routerops_nsq_channel_depth",
		Help: "Depth of NSQ channels by topic and channel.",
	}, []string{"topic", "channel"})

	channelInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "routerops_nsq_channel_inflight",
		Help: "In-flight messages for NSQ channels by topic and channel.",
	}, []string{"topic", "channel"})
)

func main() {
	logger := logging.New("routerops-queue-monitor")

	nsqdHTTP := getenv("NSQD_HTTP_ADDR", "nsqd:4151")
	port := getenv("PORT", "8084")
	taskTopic := getenv("NSQ_TASK_TOPIC", "router_tasks")
	workerChannel := getenv("NSQ_WORKER_CHANNEL", "workers")
	interval := time.Duration(getenvInt("POLL_INTERVAL_SECONDS", 15)) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.QueueBacklog, channelDepth, channelInflight)

	go poll(ctx, logger, nsqdHTTP, taskTopic, workerChannel, interval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	httpSrv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("Queue monitor HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("Queue monitor HTTP server failed")
		}
	}()

	logger.Plain().
		WithField("nsqd", nsqdHTTP).
		WithField("topic", taskTopic).
		WithField("interval", interval.String()).
		Info("Queue monitor polling")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	logger.Plain().Info("Queue monitor stopped")
}

func poll(ctx context.Context, logger *logging.Logger, nsqdHost, taskTopic, workerChannel string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := updateMetrics(nsqdHost, taskTopic, workerChannel); err != nil {
				logger.Plain().WithError(err).Error("Queue stats poll failed")
			}
		}
	}
}

func updateMetrics(nsqdHost, taskTopic, workerChannel string) error {
	resp, err := http.Get(fmt.Sprintf("http://%s/stats?format=json", nsqdHost))
	if err != nil {
		return fmt.Errorf("fetch nsqd stats: %w", err)
	}
	defer resp.Body.Close()

	var stats struct {
		Topics []struct {
			Name     string `json:"topic_name"`
			Channels []struct {
				Name          string `json:"channel_name"`
				Depth         int64  `json:"depth"`
				InFlightCount int64  `json:"in_flight_count"`
			} `json:"channels"`
		} `json:"topics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("decode nsqd stats: %w", err)
	}

	for _, topic := range stats.Topics {
		if topic.Name != taskTopic {
			continue
		}
		for _, channel := range topic.Channels {
			if channel.Name == workerChannel {
				metrics.UpdateQueueBacklog(float64(channel.Depth))
			}
			channelDepth.WithLabelValues(topic.Name, channel.Name).Set(float64(channel.Depth))
			channelInflight.WithLabelValues(topic.Name, channel.Name).Set(float64(channel.InFlightCount))
		}
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
