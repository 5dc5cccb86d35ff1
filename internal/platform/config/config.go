package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. Values come from DefaultConfig, then an
// optional YAML file, then environment variables, in that order.
type Config struct {
	Server    Server          `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Cache     CacheConfig     `yaml:"cache"`
	Themes    ThemesConfig    `yaml:"themes"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `yaml:"addr"`
	Environment       string        `yaml:"environment"`
	AdminToken        string        `yaml:"admin_token"`
	PlatformDomain    string        `yaml:"platform_domain"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig selects the slog handler and level.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the business-data Postgres connection.
// An empty URL selects the in-memory repositories.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig describes the optional Redis connection used by the shared cache
// backend and the checkout session store.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// The cache layer stops calling Redis after BreakerFailures consecutive errors
	// and probes it again once per BreakerCooldown.
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// KafkaConfig enables the invalidation event consumer when Brokers is non-empty.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	GroupPrefix string   `yaml:"group_prefix"`
}

// CacheConfig selects the cache backend and its TTL policy.
type CacheConfig struct {
	Backend        string        `yaml:"backend"`
	KeyPrefix      string        `yaml:"key_prefix"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	DefaultTTL     time.Duration `yaml:"default_ttl"`
	SearchTTL      time.Duration `yaml:"search_ttl"`
	CartTTL        time.Duration `yaml:"cart_ttl"`
	NavigationTTL  time.Duration `yaml:"navigation_ttl"`
	TemplateTTL    time.Duration `yaml:"template_ttl"`
	DomainTTL      time.Duration `yaml:"domain_ttl"`
	DomainMissTTL  time.Duration `yaml:"domain_miss_ttl"`
	DomainErrorTTL time.Duration `yaml:"domain_error_ttl"`
}

// ThemesConfig points the filesystem object storage at the themes root.
type ThemesConfig struct {
	Dir string `yaml:"dir"`
}

// RateLimitConfig bounds cart and checkout API calls per client IP. Zero requests
// disables the limiter.
type RateLimitConfig struct {
	APIRequests int           `yaml:"api_requests"`
	Window      time.Duration `yaml:"window"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Server: Server{
			Addr:              ":8080",
			Environment:       "development",
			PlatformDomain:    "fasttify.com",
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			MaxOpenConns:    60,
			MaxIdleConns:    20,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,

			BreakerFailures: 5,
			BreakerCooldown: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:       "storefront.cache.invalidations",
			GroupPrefix: "storefront-renderer",
		},
		Cache: CacheConfig{
			Backend:        "memory",
			KeyPrefix:      "storefront:",
			SweepInterval:  time.Minute,
			DefaultTTL:     15 * time.Minute,
			SearchTTL:      10 * time.Minute,
			CartTTL:        5 * time.Minute,
			NavigationTTL:  30 * time.Minute,
			TemplateTTL:    time.Hour,
			DomainTTL:      30 * time.Minute,
			DomainMissTTL:  5 * time.Minute,
			DomainErrorTTL: time.Minute,
		},
		Themes:    ThemesConfig{Dir: "./themes"},
		RateLimit: RateLimitConfig{APIRequests: 120, Window: time.Minute},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path is
// empty or the file does not exist) and environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from defaults and environment variables only.
func FromEnv() Config {
	cfg := DefaultConfig()
	applyEnv(&cfg)
	return cfg
}

// Validate rejects combinations the process cannot start with.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("cache backend redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka brokers configured without a topic")
	}
	if c.RateLimit.APIRequests > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// IsProduction reports whether the process runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = env("STOREFRONT_ADDR", cfg.Server.Addr)
	cfg.Server.Environment = env("APP_ENV", cfg.Server.Environment)
	cfg.Server.AdminToken = env("ADMIN_API_TOKEN", cfg.Server.AdminToken)
	cfg.Server.PlatformDomain = env("PLATFORM_DOMAIN", cfg.Server.PlatformDomain)

	cfg.Logging.Level = env("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = env("LOG_FORMAT", cfg.Logging.Format)

	cfg.Database.URL = env("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = intEnv("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = intEnv("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxIdleTime = durationEnv("DB_CONN_MAX_IDLE", cfg.Database.ConnMaxIdleTime)
	cfg.Database.ConnMaxLifetime = durationEnv("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime)

	cfg.Redis.URL = env("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.PoolSize = intEnv("REDIS_POOL_SIZE", cfg.Redis.PoolSize)

	if brokers := env("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = env("KAFKA_INVALIDATION_TOPIC", cfg.Kafka.Topic)

	cfg.Cache.Backend = env("CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.DefaultTTL = durationEnv("CACHE_DEFAULT_TTL", cfg.Cache.DefaultTTL)
	cfg.Cache.TemplateTTL = durationEnv("CACHE_TEMPLATE_TTL", cfg.Cache.TemplateTTL)
	cfg.Cache.DomainTTL = durationEnv("CACHE_DOMAIN_TTL", cfg.Cache.DomainTTL)

	cfg.Themes.Dir = env("THEMES_DIR", cfg.Themes.Dir)

	cfg.RateLimit.APIRequests = intEnv("RATE_LIMIT_API_REQUESTS", cfg.RateLimit.APIRequests)
	cfg.RateLimit.Window = durationEnv("RATE_LIMIT_WINDOW", cfg.RateLimit.Window)
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
