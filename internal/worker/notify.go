package worker

import (
	"context"

	"github.com/routerops/routerops/internal/logging"
	"github.com/routerops/routerops/internal/metrics"
	"github.com/routerops/routerops/internal/task"
)

// NotifyFunc delivers a task outcome back to the user. artifact is the
// filename of a generated file, empty when there is none; note is optional
// free text carried from enqueue time. Delivery is best effort and a
// returned error is logged, never retried.
type NotifyFunc func(ctx context.Context, channelID, userID *int64, t *task.Task, artifact, note string) error

// LogNotifier is the default sink. It records the outcome in the log
// stream; a chat front end replaces it with a real delivery callback.
func LogNotifier(log *logging.Logger) NotifyFunc {
	return func(ctx context.Context, channelID, userID *int64, t *task.Task, artifact, note string) error {
		entry := log.WithContext(ctx).WithTask(t.ID).WithRouter(t.RouterHost).WithGuild(t.GuildID).
			WithField("status", string(t.Status))
		if channelID != nil {
			entry = entry.WithField("channel_id", *channelID)
		}
		if artifact != "" {
			entry = entry.WithField("artifact", artifact)
		}
		entry.Info("Task notification")
		return nil
	}
}

// notify fires the callback and swallows failures.
func (w *Worker) notify(ctx context.Context, channelID, userID *int64, t *task.Task, artifact, note string) {
	if w.deps.Notify == nil {
		return
	}
	if err := w.deps.Notify(ctx, channelID, userID, t, artifact, note); err != nil {
		metrics.RecordNotification(false)
		w.deps.Log.WithContext(ctx).WithTask(t.ID).WithError(err).Warn("Notification delivery failed")
		return
	}
	metrics.RecordNotification(true)
}
