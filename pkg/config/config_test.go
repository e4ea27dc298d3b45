package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metacache"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 255, cfg.Mount.NameMax)
	assert.Equal(t, 8, cfg.Mount.PathRetryLimit)
	assert.Equal(t, "memory", cfg.Metacache.Type)
	assert.Equal(t, 1024, cfg.Metacache.Memory.MaxEntries)
	assert.Equal(t, 30*time.Second, cfg.Metacache.Memory.TTL)

	require.NoError(t, Validate(&cfg))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: DEBUG
  output: stderr
mount:
  name_max: 128
  requests_per_second: 500
  burst: 50
metacache:
  type: memory
  memory:
    max_entries: 64
    ttl: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 128, cfg.Mount.NameMax)
	assert.Equal(t, uint(500), cfg.Mount.RequestsPerSecond)
	assert.Equal(t, uint(50), cfg.Mount.Burst)
	assert.Equal(t, 64, cfg.Metacache.Memory.MaxEntries)
	assert.Equal(t, 5*time.Second, cfg.Metacache.Memory.TTL)
	// Unmentioned fields still get defaults.
	assert.Equal(t, 8, cfg.Mount.PathRetryLimit)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "LOUD" }},
		{"bad metacache type", func(c *Config) { c.Metacache.Type = "redis" }},
		{"badger without path", func(c *Config) { c.Metacache.Type = "badger" }},
		{"burst without rate", func(c *Config) { c.Mount.Burst = 10 }},
		{"retry limit too high", func(c *Config) { c.Mount.PathRetryLimit = 1000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			ApplyDefaults(&cfg)
			tt.mutate(&cfg)
			assert.Error(t, Validate(&cfg))
		})
	}
}

func TestCreateMetaCache(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		var cfg Config
		ApplyDefaults(&cfg)
		store, err := CreateMetaCache(context.Background(), &cfg)
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*metacache.MemoryStore)
		assert.True(t, ok)
	})

	t.Run("badger", func(t *testing.T) {
		var cfg Config
		ApplyDefaults(&cfg)
		cfg.Metacache.Type = "badger"
		cfg.Metacache.Badger.Path = t.TempDir()
		store, err := CreateMetaCache(context.Background(), &cfg)
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*metacache.BadgerStore)
		assert.True(t, ok)
	})
}
