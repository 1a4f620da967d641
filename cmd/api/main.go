package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront-catalog/internal/cache"
	"storefront-catalog/internal/catalogapi"
	"storefront-catalog/internal/config"
	"storefront-catalog/internal/database"
	"storefront-catalog/internal/fetch"
	"storefront-catalog/internal/logger"
	"storefront-catalog/internal/pills"
	"storefront-catalog/internal/repository"
	"storefront-catalog/internal/server"
	"storefront-catalog/internal/session"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, stopSweeper context.CancelFunc, logger *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

// catalogSource picks where product lists and facets come from.
func catalogSource(cfg *config.Config, log *zap.Logger) (fetch.ProductFetcher, fetch.FacetFetcher, []func() error) {
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		dbService, err := database.New(cfg.Database)
		if err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		log.Info("Database health check", zap.Any("health", dbService.Health()))

		if err := database.RunMigrations(dbService.DB(), cfg.Catalog.MigrationsPath, log); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}

		source := repository.NewCatalogSource(
			repository.NewProductRepository(dbService.DB()),
			repository.NewFacetRepository(dbService.DB()),
		)
		return source, source, []func() error{dbService.Close}

	case config.SourceRemote:
		client := catalogapi.NewClient(nil, cfg.Catalog.APIURL, cfg.Catalog.APITimeout, log.Named("catalogapi"))
		return client, client, nil

	default:
		log.Fatal("Unknown catalog source", zap.String("source", cfg.Catalog.Source))
		return nil, nil, nil
	}
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting storefront catalog API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("source", cfg.Catalog.Source),
	)

	products, facets, closers := catalogSource(cfg, log)

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unreachable, facet cache and rate limiting degrade to pass-through", zap.Error(err))
		}
		cancel()

		facetCache := cache.NewFacetCache(rdb, facets, cfg.Catalog.FacetCacheTTL, log.Named("cache"))
		if cfg.Catalog.Source == config.SourcePostgres {
			// Migrations may have changed the facet rows since the entry was written.
			invalidateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := facetCache.Invalidate(invalidateCtx); err != nil {
				log.Warn("Could not drop cached facet catalog", zap.Error(err))
			}
			cancel()
		}
		facets = facetCache
		closers = append(closers, rdb.Close)
	}

	projector := pills.NewProjector(cfg.Catalog.DefaultLocale, cfg.Catalog.PriceCeiling)
	registry := session.NewRegistry(session.Deps{
		Products:  products,
		Facets:    facets,
		Projector: projector,
	}, session.Options{
		Locale:        cfg.Catalog.DefaultLocale,
		AutoApplySort: cfg.Catalog.AutoApplySort,
	}, cfg.Session.IdleTimeout, log.Named("session"))

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go registry.Run(sweepCtx, cfg.Session.SweepInterval)

	srv := server.NewServer(cfg, log, server.Deps{
		Products:  products,
		Facets:    facets,
		Projector: projector,
		Registry:  registry,
		Redis:     rdb,
		Closers:   closers,
	})

	done := make(chan bool, 1)
	go gracefulShutdown(srv, stopSweeper, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
