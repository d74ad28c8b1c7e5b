package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "alumni_connect", cfg.Mongo.Database)
	assert.Equal(t, 5, cfg.Mongo.ConnectRetries)
	assert.Equal(t, 2*time.Second, cfg.Mongo.RetryBackoff)
	assert.Equal(t, RealtimeSourceAuto, cfg.Realtime.Source)
	assert.Equal(t, RelayNone, cfg.Realtime.Relay)
	assert.NotEmpty(t, cfg.Uploads.AllowedMIMEs)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MONGO_CONNECT_RETRIES", "0")
	t.Setenv("MONGO_RETRY_BACKOFF", "nonsense")
	t.Setenv("REALTIME_SOURCE", "Hooks")
	t.Setenv("REALTIME_RELAY", "kafka")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Mongo.ConnectRetries)
	assert.Equal(t, 2*time.Second, cfg.Mongo.RetryBackoff)
	assert.Equal(t, RealtimeSourceHooks, cfg.Realtime.Source)
	assert.Equal(t, RelayNone, cfg.Realtime.Relay)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
