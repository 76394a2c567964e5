// Package task holds the task entity, its status state machine, the queue
// envelope format, the Postgres-backed store, and the producer that enqueues
// new work.
package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation names accepted by the producer. The worker maps each to a
// handler via the corresponding queue event type.
const (
	OpBackup      = "backup"
	OpHealthCheck = "health-check"
)

// Status is the task lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is a persisted record of one deferred router operation and its outcome.
type Task struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	RouterHost string            `json:"router_host"`
	GuildID    int64             `json:"guild_id"`
	ChannelID  *int64            `json:"channel_id,omitempty"`
	UserID     *int64            `json:"user_id,omitempty"`
	Status     Status            `json:"status"`
	Result     string            `json:"result,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// New constructs a pending task with a fresh ID and timestamps.
func New(opType, routerHost string, guildID int64, channelID, userID *int64, metadata map[string]string) *Task {
	now := time.Now().UTC()
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return &Task{
		ID:         uuid.NewString(),
		Type:       opType,
		RouterHost: routerHost,
		GuildID:    guildID,
		ChannelID:  channelID,
		UserID:     userID,
		Status:     StatusPending,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// transition enforces the pending -> running -> {completed, failed} machine.
func (t *Task) transition(to Status) error {
	allowed := false
	switch t.Status {
	case StatusPending:
		allowed = to == StatusRunning
	case StatusRunning:
		allowed = to == StatusCompleted || to == StatusFailed
	}
	if !allowed {
		return fmt.Errorf("illegal task transition %s -> %s (task %s)", t.Status, to, t.ID)
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkRunning moves a pending task to running.
func (t *Task) MarkRunning() error {
	return t.transition(StatusRunning)
}

// MarkCompleted moves a running task to completed and records its result.
func (t *Task) MarkCompleted(result string) error {
	if err := t.transition(StatusCompleted); err != nil {
		return err
	}
	t.Result = result
	return nil
}

// MarkFailed moves a running or pending task to failed and records the
// human-readable reason. Failing a pending task covers the producer's
// dispatch-failure path, where the task never reached a worker.
func (t *Task) MarkFailed(reason string) error {
	if t.Status == StatusPending {
		// pending -> failed is the producer-side dead end
		t.Status = StatusFailed
		t.Result = reason
		t.UpdatedAt = time.Now().UTC()
		return nil
	}
	if err := t.transition(StatusFailed); err != nil {
		return err
	}
	t.Result = reason
	return nil
}

// SetMeta records a handler-owned metadata entry. Keys are additive only.
func (t *Task) SetMeta(key, value string) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]string)
	}
	t.Metadata[key] = value
}

// Label returns the best display name for the task's target router.
func (t *Task) Label() string {
	if l := t.Metadata["router_label"]; l != "" {
		return l
	}
	return t.RouterHost
}
