package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskDefaults(t *testing.T) {
	ch := int64(200)
	tk := New(OpBackup, "192.0.2.10", 100, &ch, nil, nil)

	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, StatusPending, tk.Status)
	assert.Equal(t, "192.0.2.10", tk.RouterHost)
	assert.Equal(t, int64(100), tk.GuildID)
	require.NotNil(t, tk.ChannelID)
	assert.Equal(t, int64(200), *tk.ChannelID)
	assert.Nil(t, tk.UserID)
	assert.NotNil(t, tk.Metadata)
	assert.False(t, tk.CreatedAt.IsZero())
	assert.Equal(t, tk.CreatedAt, tk.UpdatedAt)
}

func TestTaskTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		apply   func(*Task) error
		want    Status
		wantErr bool
	}{
		{"pending to running", StatusPending, (*Task).MarkRunning, StatusRunning, false},
		{"running to completed", StatusRunning, func(tk *Task) error { return tk.MarkCompleted("ok") }, StatusCompleted, false},
		{"running to failed", StatusRunning, func(tk *Task) error { return tk.MarkFailed("boom") }, StatusFailed, false},
		{"pending to failed is allowed for dispatch errors", StatusPending, func(tk *Task) error { return tk.MarkFailed("queue dispatch failed") }, StatusFailed, false},
		{"pending cannot complete directly", StatusPending, func(tk *Task) error { return tk.MarkCompleted("ok") }, StatusPending, true},
		{"completed is terminal for running", StatusCompleted, (*Task).MarkRunning, StatusCompleted, true},
		{"completed is terminal for failed", StatusCompleted, func(tk *Task) error { return tk.MarkFailed("late") }, StatusCompleted, true},
		{"failed is terminal", StatusFailed, func(tk *Task) error { return tk.MarkCompleted("late") }, StatusFailed, true},
		{"running cannot run twice", StatusRunning, (*Task).MarkRunning, StatusRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := New(OpHealthCheck, "192.0.2.1", 1, nil, nil, nil)
			tk.Status = tt.from
			prevResult := tk.Result

			err := tt.apply(tk)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.from, tk.Status, "status must not move on an illegal transition")
				assert.Equal(t, prevResult, tk.Result, "result must not change on an illegal transition")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tk.Status)
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestTaskLabel(t *testing.T) {
	tk := New(OpBackup, "192.0.2.10", 1, nil, nil, nil)
	assert.Equal(t, "192.0.2.10", tk.Label())

	tk.SetMeta("router_label", "edge-core-1")
	assert.Equal(t, "edge-core-1", tk.Label())
}
