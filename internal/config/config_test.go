package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: local
url_shortener:
  base_url: https://sho.rt
  code_length: 10
analytics:
  workers: 7
  retry_delay: 250ms
kafka:
  brokers: ["k1:9092", "k2:9092"]
auth:
  allowed_origins: ["https://app.sho.rt"]
`), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "https://sho.rt", cfg.URLShortener.BaseURL)
	assert.Equal(t, 10, cfg.URLShortener.CodeLength)
	assert.Equal(t, 32, cfg.URLShortener.MaxGenerationAttempts)
	assert.Equal(t, "/not-found", cfg.URLShortener.NotFoundPath)
	assert.Equal(t, 7, cfg.Analytics.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Analytics.RetryDelay)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://app.sho.rt"}, cfg.Auth.AllowedOrigins)
	assert.Equal(t, ":8080", cfg.HTTPServer.Address)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yml"))
	t.Setenv("ENV", "dev")
	t.Setenv("CODE_LENGTH", "6")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.sho.rt,https://admin.sho.rt")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 6, cfg.URLShortener.CodeLength)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "link-clicks", cfg.Kafka.Topic)
	assert.Equal(t, []string{"https://app.sho.rt", "https://admin.sho.rt"}, cfg.Auth.AllowedOrigins)
}
