package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", true)
	logger.Debug("hidden")
	logger.Info("shown", "frames", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, float64(3), rec["frames"])

	buf.Reset()
	NewLogger(&buf, "debug", false).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestNopLogger(t *testing.T) {
	assert.False(t, NopLogger().Enabled(context.Background(), slog.LevelError))
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"2s"`), &d))
	assert.Equal(t, 2*time.Second, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`1000000`), &d))
	assert.Equal(t, time.Millisecond, d.Duration)

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	data, err := json.Marshal(Duration{Duration: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(data))
}
