package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxImages)
	assert.Equal(t, 100*time.Millisecond, cfg.TickPeriod)
	assert.Equal(t, 500*time.Millisecond, cfg.FadeWindow)
	assert.Equal(t, 10, cfg.ExportStep)
	assert.Equal(t, 500*time.Millisecond, cfg.ExportStepDelay)
	assert.Equal(t, 2, cfg.ExportRetries)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, 180, cfg.ThumbWidth)
	assert.Equal(t, 100, cfg.ThumbHeight)
	assert.True(t, cfg.Preview)
	assert.False(t, cfg.Replay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load([]string{
		"--max-images=3",
		"--tick-period=50ms",
		"--title=Opening",
		"--preset=9:16",
		"--preview=false",
		"--log-format=json",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxImages)
	assert.Equal(t, 50*time.Millisecond, cfg.TickPeriod)
	assert.Equal(t, "Opening", cfg.Title)
	assert.Equal(t, 720, cfg.Width)
	assert.Equal(t, 1280, cfg.Height)
	assert.False(t, cfg.Preview)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SLIDEREEL_MAX_IMAGES", "4")
	t.Setenv("SLIDEREEL_EXPORT_STEP_DELAY", "0s")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxImages)
	assert.Zero(t, cfg.ExportStepDelay)

	// Flags win over the environment.
	cfg, err = Load([]string{"--max-images=2"})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxImages)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slidereel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max-images: 7\nfade: 250ms\nlog-level: debug\n"), 0o644))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxImages)
	assert.Equal(t, 250*time.Millisecond, cfg.FadeWindow)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := [][]string{
		{"--max-images=0"},
		{"--tick-period=0s"},
		{"--export-step=0"},
		{"--export-step=101"},
		{"--preset=1:1"},
		{"--log-format=xml"},
		{"--log-level=loud"},
		{"--no-such-flag"},
	}
	for _, args := range tests {
		_, err := Load(args)
		assert.Error(t, err, args)
	}
}
