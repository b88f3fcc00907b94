package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("RESTAURANT_TZ", "UTC")
	t.Setenv("SBCNTR_ENABLE_TRACING", "true")
	t.Setenv("AWS_XRAY_SDK_DISABLED", "true")

	cfg, err := LoadConfig("token-123")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "token-123", cfg.SFN.TaskToken)
	assert.Equal(t, "UTC", cfg.Location.String())
	// SDKが無効化されている場合はトレースを有効にしない
	assert.False(t, cfg.EnableTracing)
}

func TestLoadConfig_InvalidTimezone(t *testing.T) {
	t.Setenv("RESTAURANT_TZ", "Mars/Olympus")
	t.Setenv("AWS_XRAY_SDK_DISABLED", "true")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, GetEnvAsIntOrDefault("SOME_INT", 7))
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, GetEnvAsIntOrDefault("SOME_INT", 7))
}
