package task

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/routerops/routerops/internal/logging"
	"github.com/routerops/routerops/internal/metrics"
	"github.com/routerops/routerops/internal/tracing"
)

// QueuePublisher publishes a message body to a topic. *nsq.Producer
// satisfies it directly.
type QueuePublisher interface {
	Publish(topic string, body []byte) error
}

// Producer creates tasks and hands them to the queue. The record is made
// durable before the message is published, so a consumer can always resolve
// the ID it receives.
type Producer struct {
	store Store
	queue QueuePublisher
	topic string
	log   *logging.Logger
}

// NewProducer builds a Producer publishing to the given topic.
func NewProducer(store Store, queue QueuePublisher, topic string, log *logging.Logger) *Producer {
	return &Producer{store: store, queue: queue, topic: topic, log: log}
}

// Request describes one operation to enqueue.
type Request struct {
	Type       string
	RouterHost string
	GuildID    int64
	ChannelID  *int64
	UserID     *int64
	Metadata   map[string]string
}

// Enqueue persists a pending task and publishes its envelope. If the publish
// fails the task is marked failed so it never sits pending forever, and the
// queue error is returned with the task for caller context.
func (p *Producer) Enqueue(ctx context.Context, req Request) (*Task, error) {
	event, err := EventForOperation(req.Type)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "task.enqueue",
		attribute.String("task.type", req.Type),
		attribute.String("router.host", req.RouterHost),
	)
	defer span.End()

	t := New(req.Type, req.RouterHost, req.GuildID, req.ChannelID, req.UserID, req.Metadata)
	span.SetAttributes(attribute.String("task.id", t.ID))

	if err := p.store.Put(ctx, t); err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, fmt.Errorf("persist task: %w", err)
	}

	env := Envelope{
		Event: event,
		Payload: Payload{
			TaskID:    t.ID,
			RouterIP:  t.RouterHost,
			GuildID:   t.GuildID,
			ChannelID: t.ChannelID,
			UserID:    t.UserID,
		},
		Trace: tracing.InjectQueueHeaders(ctx),
	}
	body, err := env.Encode()
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return t, p.failDispatch(ctx, t, err)
	}

	if err := p.queue.Publish(p.topic, body); err != nil {
		tracing.SetSpanError(ctx, err)
		return t, p.failDispatch(ctx, t, err)
	}

	metrics.RecordTaskEnqueued(t.Type)
	p.log.WithContext(ctx).WithTask(t.ID).WithRouter(t.RouterHost).WithGuild(t.GuildID).
		WithField("event", event).
		Info("Task enqueued")
	return t, nil
}

// failDispatch marks the task failed after a publish error. The status write
// is best effort; the original queue error is what the caller sees.
func (p *Producer) failDispatch(ctx context.Context, t *Task, cause error) error {
	if err := t.MarkFailed("queue dispatch failed"); err == nil {
		if err := p.store.Update(ctx, t); err != nil {
			p.log.WithContext(ctx).WithTask(t.ID).WithError(err).
				Error("Failed to record dispatch failure")
		}
	}
	p.log.WithContext(ctx).WithTask(t.ID).WithRouter(t.RouterHost).WithError(cause).
		Error("Queue dispatch failed")
	return fmt.Errorf("publish task %s: %w", t.ID, cause)
}
