package gaze

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/esimov/gaze/utils"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Region.Margin)
	assert.Equal(t, 0.48, cfg.Calibration.IrisTarget)
	assert.Equal(t, 2*time.Second, cfg.Dwell.Hold.Duration)
	assert.Len(t, cfg.Calibration.thresholds(), 20)
	assert.Equal(t, 5, cfg.Calibration.thresholds()[0])
	assert.Equal(t, 100, cfg.Calibration.thresholds()[19])
}

func TestLoadConfig_Partial(t *testing.T) {
	path := writeConfig(t, "gaze.json", `{
		"dwell": {"hold": "1500ms", "screen_width": 800, "source": "ratio"},
		"gaze": {"blink_policy": "available"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Dwell.Hold = utils.Duration{Duration: 1500 * time.Millisecond}
	want.Dwell.ScreenWidth = 800
	want.Dwell.Source = SourceRatio
	want.Gaze.BlinkPolicy = BlinkAvailable

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		invalid bool
	}{
		{"wrong extension", "gaze.yaml", `{}`, false},
		{"malformed json", "gaze.json", `{"region":`, false},
		{"bad duration", "gaze.json", `{"dwell": {"hold": "soon"}}`, false},
		{"negative margin", "gaze.json", `{"region": {"margin": -1}}`, true},
		{"empty sweep", "gaze.json", `{"calibration": {"threshold_min": 50, "threshold_max": 10}}`, true},
		{"zero step", "gaze.json", `{"calibration": {"threshold_step": 0}}`, true},
		{"even kernel", "gaze.json", `{"locator": {"erode_kernel": 4}}`, true},
		{"overlapping directions", "gaze.json", `{"gaze": {"right_max": 0.7}}`, true},
		{"unknown source", "gaze.json", `{"dwell": {"source": "nose"}}`, true},
		{"zero screen", "gaze.json", `{"dwell": {"screen_height": 0}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidConfig), err.Error())
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadConfig_TooLarge(t *testing.T) {
	content := `{"region": {"margin": 5}` + strings.Repeat(" ", 1<<20) + `}`
	_, err := LoadConfig(writeConfig(t, "big.json", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidate_NonFinite(t *testing.T) {
	tests := []struct {
		name string
		set  func(*Config)
	}{
		{"iris target", func(c *Config) { c.Calibration.IrisTarget = math.NaN() }},
		{"sigma color", func(c *Config) { c.Locator.SigmaColor = math.NaN() }},
		{"sigma space", func(c *Config) { c.Locator.SigmaSpace = math.Inf(1) }},
		{"edge margin", func(c *Config) { c.Gaze.EdgeMargin = math.NaN() }},
		{"right max", func(c *Config) { c.Gaze.RightMax = math.NaN() }},
		{"left min", func(c *Config) { c.Gaze.LeftMin = math.NaN() }},
		{"blink threshold", func(c *Config) { c.Gaze.BlinkThreshold = math.Inf(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.set(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}
