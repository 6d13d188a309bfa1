package config_test

import (
	"testing"
	"time"

	"github.com/alkime/whistle/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.EnvDevelopment, cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "recording.wav", cfg.ClipName)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.True(t, cfg.AutoStart)
	assert.Equal(t, 5, cfg.LogMaxSizeMB)
	assert.Empty(t, cfg.Dir)
	assert.True(t, cfg.Debug())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WHISTLE_ENV", config.EnvProduction)
	t.Setenv("WHISTLE_DIR", "/srv/clips")
	t.Setenv("WHISTLE_TICK_INTERVAL", "100ms")
	t.Setenv("WHISTLE_AUTO_START", "false")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/clips", cfg.Dir)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.False(t, cfg.AutoStart)
	assert.False(t, cfg.Debug())
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		key, value  string
		expectError string
	}{
		{name: "zero tick", key: "WHISTLE_TICK_INTERVAL", value: "0s", expectError: "tick interval must be positive"},
		{name: "nested clip name", key: "WHISTLE_CLIP_NAME", value: "a/b.wav", expectError: "bare file name"},
		{name: "bad duration", key: "WHISTLE_TICK_INTERVAL", value: "soon", expectError: "failed to process"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := config.LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}
