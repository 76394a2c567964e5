package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/routerops/routerops/internal/metrics"
	"github.com/routerops/routerops/internal/router"
	"github.com/routerops/routerops/internal/task"
	"github.com/routerops/routerops/internal/tracing"
)

// beginTask loads and starts the task behind a payload. A nil task with a
// nil error means the message should be acknowledged without work: the
// record is gone or already terminal, so redelivery is a no-op.
func (w *Worker) beginTask(ctx context.Context, p task.Payload) (*task.Task, error) {
	t, err := w.deps.Tasks.Get(ctx, p.TaskID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			w.deps.Log.WithContext(ctx).WithTask(p.TaskID).Error("Task not found in store, dropping message")
			return nil, nil
		}
		return nil, fmt.Errorf("load task %s: %w", p.TaskID, err)
	}
	if t.Status.Terminal() {
		w.deps.Log.WithContext(ctx).WithTask(t.ID).
			WithField("status", string(t.Status)).
			Debug("Task already terminal, dropping redelivery")
		return nil, nil
	}
	if t.Status == task.StatusRunning {
		// a worker died mid-processing and the queue redelivered; resume
		// the work, last write wins on the record
		w.deps.Log.WithContext(ctx).WithTask(t.ID).Warn("Task left running by an earlier delivery, resuming")
		return t, nil
	}

	if err := t.MarkRunning(); err != nil {
		w.deps.Log.WithContext(ctx).WithTask(t.ID).WithError(err).Warn("Task not startable, dropping message")
		return nil, nil
	}
	if err := w.deps.Tasks.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("mark task %s running: %w", t.ID, err)
	}
	return t, nil
}

// failTask records a device-side failure on the task. The write is best
// effort so a store hiccup here cannot turn a terminal outcome into a retry.
func (w *Worker) failTask(ctx context.Context, t *task.Task, reason string, started time.Time) {
	t.SetMeta("error", reason)
	if err := t.MarkFailed(reason); err != nil {
		w.deps.Log.WithContext(ctx).WithTask(t.ID).WithError(err).Error("Cannot fail task")
		return
	}
	if err := w.deps.Tasks.Update(ctx, t); err != nil {
		w.deps.Log.WithContext(ctx).WithTask(t.ID).WithError(err).Error("Failed to persist task failure")
	}
	metrics.RecordTaskResult(t.Type, "failed", time.Since(started))
	w.deps.Log.WithContext(ctx).WithTask(t.ID).WithRouter(t.RouterHost).
		WithField("reason", reason).
		Error("Task failed")
}

// completeTask records success and the handler's result text.
func (w *Worker) completeTask(ctx context.Context, t *task.Task, result string, started time.Time) error {
	if err := t.MarkCompleted(result); err != nil {
		return err
	}
	if err := w.deps.Tasks.Update(ctx, t); err != nil {
		return fmt.Errorf("persist task %s completion: %w", t.ID, err)
	}
	metrics.RecordTaskResult(t.Type, "completed", time.Since(started))
	w.deps.Log.WithContext(ctx).WithTask(t.ID).WithRouter(t.RouterHost).Info("Task completed")
	return nil
}

// resolveCredentials loads the profile for the task's target. The second
// return is a failure reason: non-empty means the task must fail without
// touching the device.
func (w *Worker) resolveCredentials(ctx context.Context, guildID int64, routerIP string) (*router.Profile, string, error) {
	profile, err := w.deps.Routers.Get(ctx, guildID, routerIP)
	if err != nil {
		if errors.Is(err, router.ErrNotFound) {
			return nil, fmt.Sprintf("Router credentials not found for %s", routerIP), nil
		}
		return nil, "", fmt.Errorf("load router profile %s: %w", routerIP, err)
	}
	if !profile.HasCredentials() {
		return nil, "Stored router credentials are incomplete", nil
	}
	return profile, "", nil
}

// handleBackup archives the device's running configuration and notifies
// the requesting user with the artifact.
func (w *Worker) handleBackup(ctx context.Context, p task.Payload) error {
	started := time.Now()
	t, err := w.beginTask(ctx, p)
	if err != nil || t == nil {
		return err
	}

	profile, reason, err := w.resolveCredentials(ctx, p.GuildID, p.RouterIP)
	if err != nil {
		return err
	}
	if reason != "" {
		w.failTask(ctx, t, reason, started)
		w.notify(ctx, p.ChannelID, p.UserID, t, "", "")
		return nil
	}

	label := t.Metadata["router_label"]
	if label == "" {
		label = profile.Name
	}
	if label == "" {
		label = profile.Hostname
	}
	if label == "" {
		label = p.RouterIP
	}
	t.SetMeta("router_label", label)

	tracing.AddSpanEvent(ctx, "ssh.get_running_config")
	puller := w.deps.NewBackup(p.RouterIP, profile.Username, profile.Password)
	configPath, err := puller.GetRunningConfig(ctx)
	if err != nil {
		w.failTask(ctx, t, err.Error(), started)
		w.notify(ctx, p.ChannelID, p.UserID, t, "", "")
		return nil
	}

	t.SetMeta("config_path", configPath)
	note := t.Metadata["note"]
	if err := w.completeTask(ctx, t, fmt.Sprintf("Configuration archived as %s", filepath.Base(configPath)), started); err != nil {
		return err
	}
	w.notify(ctx, p.ChannelID, p.UserID, t, configPath, note)
	return nil
}

// handleHealthCheck audits the device over RESTCONF. Hostname and interface
// data are required; a routing fetch failure only degrades the summary.
func (w *Worker) handleHealthCheck(ctx context.Context, p task.Payload) error {
	started := time.Now()
	t, err := w.beginTask(ctx, p)
	if err != nil || t == nil {
		return err
	}

	profile, reason, err := w.resolveCredentials(ctx, p.GuildID, p.RouterIP)
	if err != nil {
		return err
	}
	if reason != "" {
		w.failTask(ctx, t, reason, started)
		return nil
	}

	device := w.deps.NewDevice(p.RouterIP, profile.Username, profile.Password)

	tracing.AddSpanEvent(ctx, "restconf.fetch_hostname")
	hostname, err := device.FetchHostname(ctx)
	if err != nil {
		w.failTask(ctx, t, err.Error(), started)
		return nil
	}

	tracing.AddSpanEvent(ctx, "restconf.fetch_interfaces")
	interfaces, err := device.FetchInterfaces(ctx)
	if err != nil {
		w.failTask(ctx, t, err.Error(), started)
		return nil
	}

	tracing.AddSpanEvent(ctx, "restconf.fetch_static_routes")
	routeCount := -1
	if routes, rerr := device.FetchStaticRoutes(ctx); rerr == nil {
		routeCount = len(routes)
	} else {
		w.deps.Log.WithContext(ctx).WithTask(t.ID).WithRouter(p.RouterIP).WithError(rerr).
			Warn("Static route fetch failed, reporting unavailable")
	}

	up := 0
	for _, iface := range interfaces {
		if iface.Enabled {
			up++
		}
	}
	down := len(interfaces) - up

	lines := []string{
		fmt.Sprintf("Hostname: %s", hostname),
		fmt.Sprintf("Interfaces: %d total / %d up / %d down", len(interfaces), up, down),
	}
	if routeCount < 0 {
		lines = append(lines, "Static Routes: unavailable")
	} else {
		lines = append(lines, fmt.Sprintf("Static Routes: %d", routeCount))
	}

	if t.Metadata["router_label"] == "" {
		label := hostname
		if label == "" {
			label = profile.Name
		}
		if label == "" {
			label = p.RouterIP
		}
		t.SetMeta("router_label", label)
	}
	t.SetMeta("health_hostname", hostname)
	t.SetMeta("health_interfaces_total", strconv.Itoa(len(interfaces)))
	t.SetMeta("health_interfaces_up", strconv.Itoa(up))
	t.SetMeta("health_interfaces_down", strconv.Itoa(down))
	if routeCount < 0 {
		t.SetMeta("health_static_routes", "unavailable")
	} else {
		t.SetMeta("health_static_routes", strconv.Itoa(routeCount))
	}

	return w.completeTask(ctx, t, strings.Join(lines, "\n"), started)
}
