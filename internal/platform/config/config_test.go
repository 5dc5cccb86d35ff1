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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, time.Hour, cfg.Cache.TemplateTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DomainMissTTL)
	assert.Equal(t, time.Minute, cfg.Cache.DomainErrorTTL)
}

func TestLoadMergesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
cache:
  template_ttl: 2h
themes:
  dir: /srv/themes
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TemplateTTL)
	assert.Equal(t, "/srv/themes", cfg.Themes.Dir)
	// untouched keys keep their defaults
	assert.Equal(t, 30*time.Minute, cfg.Cache.DomainTTL)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("STOREFRONT_ADDR", ":7070")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("CACHE_DOMAIN_TTL", "45m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 45*time.Minute, cfg.Cache.DomainTTL)
}

func TestValidate(t *testing.T) {
	t.Run("redis backend requires url", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Cache.Backend = "redis"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Cache.Backend = "memcached"
		assert.Error(t, cfg.Validate())
	})

	t.Run("redis backend with url accepted", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Cache.Backend = "redis"
		cfg.Redis.URL = "redis://localhost:6379/0"
		assert.NoError(t, cfg.Validate())
	})
}
