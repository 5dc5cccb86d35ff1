package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/cache"
	cachemetrics "storefront/internal/cache/metrics"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/ports"
	catalogstore "storefront/internal/catalog/store"
	"storefront/internal/engine"
	"storefront/internal/fetchers/cart"
	"storefront/internal/fetchers/checkout"
	"storefront/internal/fetchers/collection"
	"storefront/internal/fetchers/navigation"
	"storefront/internal/fetchers/page"
	"storefront/internal/fetchers/product"
	"storefront/internal/invalidation"
	invalidationmetrics "storefront/internal/invalidation/metrics"
	"storefront/internal/platform/config"
	"storefront/internal/platform/postgres"
	platformredis "storefront/internal/platform/redis"
	"storefront/internal/renderer"
	renderermetrics "storefront/internal/renderer/metrics"
	"storefront/internal/storefront"
	tenantmetrics "storefront/internal/tenant/metrics"
	"storefront/internal/tenant/resolver"
	tenantstore "storefront/internal/tenant/store"
	"storefront/internal/theme"
	"storefront/internal/theme/storage"
	"storefront/pkg/platform/circuit"
)

// tenantStore is what both store record backends offer.
type tenantStore interface {
	resolver.StoreLookup
	cart.StoreLookup
	tenantstore.Saver
}

// app holds every wired service. Metrics are only registered for the long-running
// server.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	db     *sql.DB
	redis  *platformredis.Client
	local  *cache.Memory
	cache  cache.Store
	stores tenantStore
	themes *storage.FS

	carts        *cart.Fetcher
	checkouts    *checkout.Service
	renderer     *renderer.Renderer
	factory      *storefront.Factory
	invalidation *invalidation.Service
	invMetrics   *invalidationmetrics.Metrics
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, withMetrics bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger, themes: storage.NewFS(cfg.Themes.Dir)}
	ttls := cache.TTLsFromConfig(cfg.Cache)

	var cacheOpts []cache.MemoryOption
	if withMetrics {
		cacheOpts = append(cacheOpts, cache.WithMetrics(cachemetrics.New()))
	}
	a.local = cache.NewMemory(cacheOpts...)
	a.cache = a.local

	if cfg.Redis.URL != "" {
		rdb, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
	}
	if cfg.Cache.Backend == "redis" {
		breaker := circuit.New("redis-cache",
			circuit.WithFailureThreshold(cfg.Redis.BreakerFailures),
			circuit.WithCooldown(cfg.Redis.BreakerCooldown),
		)
		shared := cache.NewRedis(a.redis.Client, cfg.Cache.KeyPrefix, logger, cache.WithBreaker(breaker))
		a.cache = cache.NewLayered(a.local, shared)
	}

	repos, err := a.openRepositories(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var cartStore cart.Store = cart.NewInMemory()
	var checkoutStore checkout.Store = checkout.NewInMemory()
	if a.redis != nil {
		cartStore = cart.NewRedisStore(a.redis.Client, cfg.Cache.KeyPrefix)
		checkoutStore = checkout.NewRedisStore(a.redis.Client, cfg.Cache.KeyPrefix)
	}

	products := product.New(repos.products, a.cache, product.WithLogger(logger), product.WithTTLs(ttls))
	a.carts = cart.New(cartStore, products, a.cache, cart.WithLogger(logger), cart.WithTTLs(ttls), cart.WithStores(a.stores))
	a.checkouts = checkout.New(checkoutStore, a.carts, checkout.WithLogger(logger))

	eng := engine.New(engine.WithLogger(logger))
	loader := theme.New(a.themes, eng, a.cache, theme.WithLogger(logger), theme.WithTTLs(ttls))

	rendererOpts := []renderer.Option{renderer.WithLogger(logger)}
	resolverOpts := []resolver.Option{resolver.WithLogger(logger), resolver.WithTTLs(ttls)}
	invalidationOpts := []invalidation.Option{invalidation.WithLogger(logger)}
	if withMetrics {
		a.invMetrics = invalidationmetrics.New()
		rendererOpts = append(rendererOpts, renderer.WithMetrics(renderermetrics.New()))
		resolverOpts = append(resolverOpts, resolver.WithMetrics(tenantmetrics.New()))
		invalidationOpts = append(invalidationOpts, invalidation.WithMetrics(a.invMetrics))
	}

	a.renderer = renderer.New(loader, eng, renderer.Fetchers{
		Products:    products,
		Collections: collection.New(repos.collections, products, a.cache, collection.WithLogger(logger), collection.WithTTLs(ttls)),
		Pages:       page.New(repos.pages, a.cache, page.WithLogger(logger), page.WithTTLs(ttls)),
		Navigation:  navigation.New(repos.menus, a.cache, navigation.WithLogger(logger), navigation.WithTTLs(ttls)),
		Carts:       a.carts,
		Checkouts:   a.checkouts,
	}, rendererOpts...)
	a.factory = storefront.New(resolver.New(a.stores, a.cache, resolverOpts...), a.renderer, storefront.WithLogger(logger))
	a.invalidation = invalidation.New(a.cache, invalidationOpts...)
	return a, nil
}

type repositories struct {
	products    ports.Repository[*models.Product]
	collections ports.Repository[*models.Collection]
	pages       ports.Repository[*models.Page]
	menus       ports.Repository[*models.NavigationMenu]
}

// openRepositories selects Postgres when a database URL is configured and the
// in-memory repositories, seeded with the demo store, otherwise.
func (a *app) openRepositories(ctx context.Context) (repositories, error) {
	if a.cfg.Database.URL == "" {
		stores := tenantstore.NewInMemory()
		if _, err := tenantstore.SeedDemoStore(ctx, stores, a.cfg.Server.PlatformDomain, time.Now()); err != nil {
			return repositories{}, fmt.Errorf("seed demo store: %w", err)
		}
		a.stores = stores
		a.logger.InfoContext(ctx, "using in-memory business data",
			"demo_domain", "demo."+a.cfg.Server.PlatformDomain,
		)
		return repositories{
			products:    catalogstore.NewInMemory[*models.Product](),
			collections: catalogstore.NewInMemory[*models.Collection](),
			pages:       catalogstore.NewInMemory[*models.Page](),
			menus:       catalogstore.NewInMemory[*models.NavigationMenu](),
		}, nil
	}

	db, err := postgres.Open(ctx, a.cfg.Database)
	if err != nil {
		return repositories{}, err
	}
	a.db = db

	stores := tenantstore.NewPostgres(db)
	products := catalogstore.NewPostgres[*models.Product](db, catalogstore.TableProducts)
	collections := catalogstore.NewPostgres[*models.Collection](db, catalogstore.TableCollections)
	pages := catalogstore.NewPostgres[*models.Page](db, catalogstore.TablePages)
	menus := catalogstore.NewPostgres[*models.NavigationMenu](db, catalogstore.TableNavigationMenus)
	for _, s := range []interface{ EnsureSchema(context.Context) error }{stores, products, collections, pages, menus} {
		if err := s.EnsureSchema(ctx); err != nil {
			return repositories{}, fmt.Errorf("ensure schema: %w", err)
		}
	}
	a.stores = stores
	return repositories{products: products, collections: collections, pages: pages, menus: menus}, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
