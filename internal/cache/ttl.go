package cache

import (
	"time"

	"storefront/internal/platform/config"
)

// TTLs is the expiry policy by data volatility: hostname mappings live long,
// catalog data medium, search results and carts short.
type TTLs struct {
	Default     time.Duration
	Search      time.Duration
	Cart        time.Duration
	Navigation  time.Duration
	Template    time.Duration
	Domain      time.Duration
	DomainMiss  time.Duration
	DomainError time.Duration
}

// DefaultTTLs returns the built-in policy.
func DefaultTTLs() TTLs {
	return TTLsFromConfig(config.DefaultConfig().Cache)
}

// TTLsFromConfig reads the policy from the cache config.
func TTLsFromConfig(cfg config.CacheConfig) TTLs {
	return TTLs{
		Default:     cfg.DefaultTTL,
		Search:      cfg.SearchTTL,
		Cart:        cfg.CartTTL,
		Navigation:  cfg.NavigationTTL,
		Template:    cfg.TemplateTTL,
		Domain:      cfg.DomainTTL,
		DomainMiss:  cfg.DomainMissTTL,
		DomainError: cfg.DomainErrorTTL,
	}
}
