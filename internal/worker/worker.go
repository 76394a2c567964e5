package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/routerops/routerops/internal/config"
	"github.com/routerops/routerops/internal/metrics"
	"github.com/routerops/routerops/internal/task"
	"github.com/routerops/routerops/internal/tracing"
)

// HandlerFunc processes one decoded task payload. A returned error means an
// infrastructure failure (store unreachable) and requeues the message;
// device-side failures are folded into the task record and return nil.
type HandlerFunc func(ctx context.Context, p task.Payload) error

// Worker wraps an NSQ consumer and routes envelopes to operation handlers.
type Worker struct {
	cfg      config.Config
	deps     Deps
	handlers map[string]HandlerFunc
	consumer *nsq.Consumer
}

// New builds a worker with the standard handler set registered.
func New(cfg config.Config, deps Deps) (*Worker, error) {
	w := &Worker{
		cfg:      cfg,
		deps:     deps,
		handlers: make(map[string]HandlerFunc),
	}
	w.handlers[task.EventBackup] = w.handleBackup
	w.handlers[task.EventHealthCheck] = w.handleHealthCheck

	conf := nsq.NewConfig()
	conf.MaxInFlight = cfg.Worker.Prefetch
	consumer, err := nsq.NewConsumer(cfg.NSQ.TaskTopic, cfg.NSQ.WorkerChannel, conf)
	if err != nil {
		return nil, err
	}
	consumer.AddConcurrentHandlers(w, cfg.Worker.Prefetch)
	w.consumer = consumer
	return w, nil
}

// HandleMessage implements nsq.Handler. Undecodable bodies and unknown
// event types are acknowledged and dropped so they never wedge the channel.
func (w *Worker) HandleMessage(m *nsq.Message) error {
	m.DisableAutoResponse()
	defer func() {
		if r := recover(); r != nil {
			w.deps.Log.Plain().WithField("panic", fmt.Sprintf("%v", r)).
				Error("Handler panicked, requeueing message")
			if !m.HasResponded() {
				m.Requeue(-1)
			}
			return
		}
		if !m.HasResponded() {
			m.Finish()
		}
	}()

	env, err := task.DecodeEnvelope(m.Body)
	if err != nil {
		w.deps.Log.Plain().WithError(err).Error("Dropping malformed queue message")
		metrics.RecordMalformedMessage()
		m.Finish()
		return nil
	}

	handler, ok := w.handlers[env.Event]
	if !ok {
		w.deps.Log.Plain().WithField("event", env.Event).Error("Dropping message with unknown event type")
		metrics.RecordMalformedMessage()
		m.Finish()
		return nil
	}
	if env.Payload.TaskID == "" || env.Payload.RouterIP == "" {
		w.deps.Log.Plain().WithField("event", env.Event).Error("Dropping envelope missing identifiers")
		metrics.RecordMalformedMessage()
		m.Finish()
		return nil
	}

	ctx := tracing.ExtractQueueHeaders(context.Background(), env.Trace)
	ctx, span := tracing.StartSpan(ctx, "worker.task",
		attribute.String("event", env.Event),
		attribute.String("task.id", env.Payload.TaskID),
		attribute.String("router.host", env.Payload.RouterIP),
	)
	defer span.End()

	if err := handler(ctx, env.Payload); err != nil {
		tracing.SetSpanError(ctx, err)
		w.deps.Log.WithContext(ctx).WithTask(env.Payload.TaskID).WithError(err).
			Error("Handler hit infrastructure failure, requeueing")
		m.Requeue(-1)
		return nil
	}

	m.Finish()
	return nil
}

// Run connects the consumer and blocks until ctx is cancelled. Connection
// attempts repeat on a fixed delay so a queue restart only pauses intake.
func (w *Worker) Run(ctx context.Context) error {
	delay := w.cfg.Worker.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	for {
		err := w.consumer.ConnectToNSQD(w.cfg.NSQ.NsqdTCPAddr)
		if err == nil {
			break
		}
		w.deps.Log.Plain().WithError(err).
			WithField("nsqd", w.cfg.NSQ.NsqdTCPAddr).
			WithField("retry_in", delay.String()).
			Warn("Queue connect failed")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	w.deps.Log.Plain().
		WithField("topic", w.cfg.NSQ.TaskTopic).
		WithField("channel", w.cfg.NSQ.WorkerChannel).
		WithField("prefetch", w.cfg.Worker.Prefetch).
		Info("Worker consuming")

	<-ctx.Done()
	w.consumer.Stop()
	<-w.consumer.StopChan
	return nil
}
