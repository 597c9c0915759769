package common

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerTo(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, slog.LevelInfo, "json"))
	slog.Debug("hidden")
	slog.Info("imported", "count", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "imported", line["msg"])
	assert.EqualValues(t, 3, line["count"])

	assert.ErrorIs(t, SetupLoggerTo(&buf, slog.LevelInfo, "xml"), ErrInvalidConfig)
}

func TestErrors(t *testing.T) {
	err := NewValidationError("amount", "must be positive")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: amount must be positive", err.Error())

	assert.ErrorIs(t, NotFoundError("goal", "g1"), ErrNotFound)
	assert.Equal(t, `goal "g1": not found`, NotFoundError("goal", "g1").Error())

	userErr := NewUserError("pick a user with --user", ErrValidation)
	assert.ErrorIs(t, userErr, ErrValidation)
	assert.Equal(t, "pick a user with --user", NewUserError("pick a user with --user", nil).Error())
}
