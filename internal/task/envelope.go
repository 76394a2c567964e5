package task

import (
	"encoding/json"
	"fmt"
)

// Queue event types carried on the envelope. Each maps to one operation.
const (
	EventBackup      = "task.router.backup"
	EventHealthCheck = "task.router.health"
)

// EventForOperation maps a producer operation name to its queue event type.
func EventForOperation(opType string) (string, error) {
	switch opType {
	case OpBackup:
		return EventBackup, nil
	case OpHealthCheck:
		return EventHealthCheck, nil
	default:
		return "", fmt.Errorf("unknown operation type %q", opType)
	}
}

// Payload is the identifier-only body of a queue message. Credentials are
// re-resolved from the profile store at execution time and never travel on
// the queue.
type Payload struct {
	TaskID    string `json:"task_id"`
	RouterIP  string `json:"router_ip"`
	GuildID   int64  `json:"guild_id"`
	ChannelID *int64 `json:"channel_id"`
	UserID    *int64 `json:"user_id"`
}

// Envelope is the wire unit moving through the task queue.
type Envelope struct {
	Event   string            `json:"event"`
	Payload Payload           `json:"payload"`
	Trace   map[string]string `json:"trace,omitempty"`
}

// Encode serializes the envelope for publishing.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a queue message body.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}
