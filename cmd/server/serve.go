package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storefront/internal/invalidation"
	invalidationhandler "storefront/internal/invalidation/handler"
	"storefront/internal/platform/config"
	"storefront/internal/platform/httpserver"
	"storefront/internal/platform/kafka/consumer"
	"storefront/internal/platform/kafka/producer"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	"storefront/internal/ratelimit"
	ratelimitmetrics "storefront/internal/ratelimit/metrics"
	"storefront/internal/storefront"
)

const invalidationPartitions = 3

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront HTTP server",
	Long: `Run the storefront HTTP server. When Kafka brokers are configured the server
also consumes cache invalidation events and broadcasts the ones it receives over HTTP.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.close()

	go a.local.RunSweeper(ctx, cfg.Cache.SweepInterval)

	var broadcaster invalidationhandler.Broadcaster
	if len(cfg.Kafka.Brokers) > 0 {
		if err := consumer.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, invalidationPartitions); err != nil {
			log.WarnContext(ctx, "invalidation topic not ensured", "topic", cfg.Kafka.Topic, "error", err)
		}
		prod, err := producer.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer prod.Close()
		broadcaster = invalidation.NewBroadcaster(prod)

		cons, err := consumer.New(consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			Topics:  []string{cfg.Kafka.Topic},
			Group:   consumerGroup(cfg.Kafka.GroupPrefix),
		}, invalidation.NewEventHandler(a.invalidation, log, a.invMetrics), log)
		if err != nil {
			return err
		}
		defer cons.Close()
		go func() {
			if err := cons.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.ErrorContext(ctx, "invalidation consumer stopped", "error", err)
			}
		}()
	}

	health := map[string]storefront.HealthCheck{}
	if a.db != nil {
		health["postgres"] = a.db.PingContext
	}
	if a.redis != nil {
		health["redis"] = a.redis.Health
	}

	var apiLimit func(http.Handler) http.Handler
	if cfg.RateLimit.APIRequests > 0 {
		var store ratelimit.Store = ratelimit.NewMemory()
		if a.redis != nil {
			store = ratelimit.NewRedis(a.redis.Client, cfg.Cache.KeyPrefix)
		}
		apiLimit = ratelimit.New(store, cfg.RateLimit.APIRequests, cfg.RateLimit.Window,
			ratelimit.WithLogger(log),
			ratelimit.WithMetrics(ratelimitmetrics.New()),
		).Middleware
	}

	router := storefront.NewRouter(storefront.RouterConfig{
		Pages:        storefront.NewPageHandler(a.factory, a.themes, log),
		API:          storefront.NewAPIHandler(a.factory, a.carts, a.checkouts, log),
		APIRateLimit: apiLimit,
		Admin:        []storefront.Registrar{invalidationhandler.New(a.invalidation, broadcaster, a.cache, log)},
		AdminToken:   cfg.Server.AdminToken,
		Health:       health,
		Metrics:      metrics.New(),
		Logger:       log,
	})
	srv := httpserver.New(cfg.Server, router)

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "storefront listening",
			"addr", cfg.Server.Addr,
			"environment", cfg.Server.Environment,
			"cache_backend", cfg.Cache.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// consumerGroup gives every instance its own group so each one sees every event.
func consumerGroup(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return prefix + "-" + host
}
