package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://relay.example.com")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 7343, cfg.Port)
		assert.Equal(t, "tvlink.db", cfg.StateDBPath)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 5*time.Second, cfg.AuthWait())
		assert.Equal(t, 8*time.Second, cfg.CastReadyTimeout())
		assert.Equal(t, 1500*time.Millisecond, cfg.CastCloseDelay())
		assert.Equal(t, time.Second, cfg.SendRetrySettle())
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://relay.example.com")
		t.Setenv("PORT", "9000")
		t.Setenv("CAST_READY_TIMEOUT_MS", "12000")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, 12*time.Second, cfg.CastReadyTimeout())
	})
}

func TestAddr(t *testing.T) {
	t.Run("binds loopback only", func(t *testing.T) {
		cfg := &Config{Port: 7343}
		assert.Equal(t, "127.0.0.1:7343", cfg.Addr())
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIBaseURL:         "https://relay.example.com",
			CastReadyTimeoutMS: 8000,
			AuthWaitMS:         5000,
		}
	}

	t.Run("accepts a complete config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects a relative base url", func(t *testing.T) {
		cfg := valid()
		cfg.APIBaseURL = "relay.example.com/api"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects a non-http scheme", func(t *testing.T) {
		cfg := valid()
		cfg.APIBaseURL = "ftp://relay.example.com"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive ceilings", func(t *testing.T) {
		cfg := valid()
		cfg.CastReadyTimeoutMS = 0
		assert.Error(t, cfg.Validate())

		cfg = valid()
		cfg.AuthWaitMS = -1
		assert.Error(t, cfg.Validate())
	})
}
