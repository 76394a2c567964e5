// Package monitor periodically probes every registered router and writes
// the verdict back to the profile store.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/routerops/routerops/internal/config"
	"github.com/routerops/routerops/internal/logging"
	"github.com/routerops/routerops/internal/metrics"
	"github.com/routerops/routerops/internal/restconf"
	"github.com/routerops/routerops/internal/router"
)

// Prober answers whether a device responds to an authenticated RESTCONF
// request. The default implementation fetches the hostname.
type Prober func(ctx context.Context, host, username, password string, timeout time.Duration) error

// RestconfProber probes with a hostname fetch over RESTCONF.
func RestconfProber(ctx context.Context, host, username, password string, timeout time.Duration) error {
	client := restconf.NewClient(host, username, password, timeout)
	_, err := restconf.NewService(client).FetchHostname(ctx)
	return err
}

// Monitor is the fleet health loop.
type Monitor struct {
	cfg   config.Monitor
	store router.Store
	probe Prober
	log   *logging.Logger
}

// New builds a monitor. A nil probe falls back to RestconfProber.
func New(cfg config.Monitor, store router.Store, probe Prober, log *logging.Logger) *Monitor {
	if probe == nil {
		probe = RestconfProber
	}
	return &Monitor{cfg: cfg, store: store, probe: probe, log: log}
}

// Run executes iterations until ctx is cancelled. The sleep between
// iterations shrinks by however long the iteration itself took, so the
// cadence stays near the configured interval.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Plain().
		WithField("interval", m.cfg.Interval.String()).
		WithField("timeout", m.cfg.Timeout.String()).
		WithField("concurrency", m.cfg.Concurrency).
		Info("Fleet monitor starting")

	for {
		start := time.Now()
		if err := m.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Plain().WithError(err).Error("Monitor iteration failed")
		}

		sleep := m.cfg.Interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce probes every registered router with bounded concurrency.
func (m *Monitor) RunOnce(ctx context.Context) error {
	profiles, err := m.store.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		m.log.Plain().Debug("No routers registered, nothing to probe")
		return nil
	}

	concurrency := m.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, p := range profiles {
		wg.Add(1)
		sem <- struct{}{}
		go func(p *router.Profile) {
			defer wg.Done()
			defer func() { <-sem }()
			m.evaluate(ctx, p)
		}(p)
	}
	wg.Wait()
	return nil
}

// evaluate probes one router and writes the classification. Missing
// credentials are decided without touching the network.
func (m *Monitor) evaluate(ctx context.Context, p *router.Profile) {
	if !p.HasCredentials() {
		m.setStatus(ctx, p, router.StatusInvalid, nil, "Credentials missing")
		metrics.RecordProbe(string(router.StatusInvalid))
		return
	}

	err := m.probe(ctx, p.IP, p.Username, p.Password, m.cfg.Timeout)
	now := time.Now().UTC()

	switch {
	case err == nil:
		m.setStatus(ctx, p, router.StatusOnline, &now, "")
		metrics.RecordProbe(string(router.StatusOnline))
		// only recoveries are worth an info line
		if p.Status != router.StatusOnline {
			m.log.Plain().WithRouter(p.IP).WithGuild(p.GuildID).Info("Router is online")
		}
	case isAuthFailure(err):
		m.setStatus(ctx, p, router.StatusAuthFailed, nil, err.Error())
		metrics.RecordProbe(string(router.StatusAuthFailed))
		m.log.Plain().WithRouter(p.IP).WithGuild(p.GuildID).WithError(err).Warn("Router authentication failed")
	case restconf.IsConnError(err):
		m.setStatus(ctx, p, router.StatusOffline, nil, err.Error())
		metrics.RecordProbe(string(router.StatusOffline))
		m.log.Plain().WithRouter(p.IP).WithGuild(p.GuildID).WithError(err).Warn("Router unreachable")
	default:
		m.setStatus(ctx, p, router.StatusError, nil, err.Error())
		metrics.RecordProbe(string(router.StatusError))
		m.log.Plain().WithRouter(p.IP).WithGuild(p.GuildID).WithError(err).Error("Router probe hit unexpected error")
	}
}

func (m *Monitor) setStatus(ctx context.Context, p *router.Profile, status router.Status, lastSeen *time.Time, reason string) {
	if err := m.store.SetStatus(ctx, p.GuildID, p.IP, status, lastSeen, reason); err != nil {
		m.log.Plain().WithRouter(p.IP).WithGuild(p.GuildID).WithError(err).Error("Failed to record router status")
	}
}

func isAuthFailure(err error) bool {
	_, ok := restconf.IsHTTPError(err)
	return ok
}
