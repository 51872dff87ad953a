package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 32, cfg.Engine.MaxBatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Engine.MaxWait)
	assert.Equal(t, 200*time.Millisecond, cfg.Engine.TargetLatency)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "lru", cfg.Cache.Backend)
	assert.Equal(t, 1000, cfg.Cache.Capacity)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Engine.MaxBatchSize)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Engine.MaxBatchSize)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inferflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  max_batch_size: 8
  max_wait: 25ms
  target_latency: 150ms
cache:
  enabled: true
  backend: redis
  capacity: 500
  layer:
    default_ttl: 10m
    precision: 4
redis:
  addr: redis.internal:6379
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.MaxBatchSize)
	assert.Equal(t, 25*time.Millisecond, cfg.Engine.MaxWait)
	assert.Equal(t, 150*time.Millisecond, cfg.Engine.TargetLatency)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 500, cfg.Cache.Capacity)
	assert.Equal(t, 10*time.Minute, cfg.Cache.Layer.DefaultTTL)
	assert.Equal(t, 4, cfg.Cache.Layer.Precision)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [not a map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inferflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  max_batch_size: 8
redis:
  addr: from-file:6379
`), 0o600))

	t.Setenv("INFERFLOW_MAX_BATCH_SIZE", "64")
	t.Setenv("INFERFLOW_MAX_WAIT", "10ms")
	t.Setenv("INFERFLOW_REDIS_ADDR", "from-env:6379")
	t.Setenv("INFERFLOW_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Engine.MaxBatchSize, "env beats file")
	assert.Equal(t, 10*time.Millisecond, cfg.Engine.MaxWait)
	assert.Equal(t, "from-env:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_IgnoresMalformedEnvValues(t *testing.T) {
	t.Setenv("INFERFLOW_MAX_BATCH_SIZE", "not-a-number")
	t.Setenv("INFERFLOW_MAX_WAIT", "not-a-duration")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Engine.MaxBatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Engine.MaxWait)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Engine.MaxBatchSize = 0 },
			wantErr: "max_batch_size",
		},
		{
			name:    "negative max wait",
			mutate:  func(c *Config) { c.Engine.MaxWait = -time.Second },
			wantErr: "max_wait",
		},
		{
			name:    "zero target latency",
			mutate:  func(c *Config) { c.Engine.TargetLatency = 0 },
			wantErr: "target_latency",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: "cache.backend",
		},
		{
			name: "redis backend without addr",
			mutate: func(c *Config) {
				c.Cache.Backend = "redis"
				c.Redis.Addr = ""
			},
			wantErr: "redis.addr",
		},
		{
			name:    "zero cache capacity",
			mutate:  func(c *Config) { c.Cache.Capacity = 0 },
			wantErr: "cache.capacity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogConfig_BuildLogger(t *testing.T) {
	logger, err := LogConfig{Level: "debug", Development: true}.BuildLogger()
	require.NoError(t, err)
	require.NotNil(t, logger)
	_ = logger.Sync()

	_, err = LogConfig{Level: "verbose"}.BuildLogger()
	assert.Error(t, err, "unknown level must be rejected")
}
