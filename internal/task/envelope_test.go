package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventForOperation(t *testing.T) {
	tests := []struct {
		opType  string
		want    string
		wantErr bool
	}{
		{OpBackup, EventBackup, false},
		{OpHealthCheck, EventHealthCheck, false},
		{"reboot", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := EventForOperation(tt.opType)
		if tt.wantErr {
			assert.Error(t, err, "opType %q", tt.opType)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	ch := int64(42)
	uid := int64(7)
	env := Envelope{
		Event: EventBackup,
		Payload: Payload{
			TaskID:    "5b9f0e3a-2c6d-4f1e-9a8b-0c1d2e3f4a5b",
			RouterIP:  "192.0.2.10",
			GuildID:   100,
			ChannelID: &ch,
			UserID:    &uid,
		},
		Trace: map[string]string{"traceparent": "00-abc-def-01"},
	}

	body, err := env.Encode()
	require.NoError(t, err)

	got, err := DecodeEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestEnvelopeWireFieldNames(t *testing.T) {
	env := Envelope{
		Event: EventHealthCheck,
		Payload: Payload{
			TaskID:   "id-1",
			RouterIP: "192.0.2.20",
			GuildID:  9,
		},
	}
	body, err := env.Encode()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Contains(t, raw, "event")
	assert.Contains(t, raw, "payload")
	assert.NotContains(t, raw, "trace", "empty trace headers must be omitted")

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["payload"], &payload))
	for _, key := range []string{"task_id", "router_ip", "guild_id", "channel_id", "user_id"} {
		assert.Contains(t, payload, key)
	}
	assert.Equal(t, "null", string(payload["channel_id"]), "unset channel travels as explicit null")
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)
}
