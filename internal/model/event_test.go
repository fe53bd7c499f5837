package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventrelay/eventrelay/internal/model"
)

func TestNewEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	event := model.NewEvent("evt-1", "user.created", "auth-service", map[string]any{"user": "u-1"}, now)

	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, model.StatusPending, event.Status)
	assert.Equal(t, now, event.CreatedAt)
	assert.Equal(t, now, event.UpdatedAt)
	assert.Zero(t, event.DeliveryAttempts)
	assert.Nil(t, event.LastDeliveryAttempt)
	assert.Equal(t, now.Add(model.RetentionDays*24*time.Hour).Unix(), event.ExpiresAt)
}

func TestEventValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		event   *model.Event
		wantErr error
	}{
		{
			name:  "valid",
			event: model.NewEvent("evt-1", "user.created", "auth-service", map[string]any{}, now),
		},
		{
			name:    "empty type",
			event:   model.NewEvent("evt-1", "", "auth-service", map[string]any{}, now),
			wantErr: model.ErrEmptyType,
		},
		{
			name:    "empty source",
			event:   model.NewEvent("evt-1", "user.created", "", map[string]any{}, now),
			wantErr: model.ErrEmptySource,
		},
		{
			name:    "nil payload",
			event:   model.NewEvent("evt-1", "user.created", "auth-service", nil, now),
			wantErr: model.ErrMissingPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()

			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	t.Run("validate", func(t *testing.T) {
		require.NoError(t, model.StatusPending.Validate())
		require.NoError(t, model.StatusDelivered.Validate())
		require.NoError(t, model.StatusFailed.Validate())
		assert.ErrorIs(t, model.Status("shipped").Validate(), model.ErrUnknownStatus)
	})

	t.Run("terminal", func(t *testing.T) {
		assert.False(t, model.StatusPending.Terminal())
		assert.True(t, model.StatusDelivered.Terminal())
		assert.True(t, model.StatusFailed.Terminal())
	})
}

func TestEventLatency(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := model.NewEvent("evt-1", "user.created", "auth-service", map[string]any{}, created)

	assert.Equal(t, int64(1500), event.Latency(created.Add(1500*time.Millisecond)))
}
