package server

import (
	"fmt"
	"net/http"
	"time"

	"storefront-catalog/internal/config"
	"storefront-catalog/internal/fetch"
	custommiddleware "storefront-catalog/internal/middleware"
	"storefront-catalog/internal/pills"
	"storefront-catalog/internal/session"
	"storefront-catalog/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the long-lived collaborators the HTTP server routes to.
type Deps struct {
	Products  fetch.ProductFetcher
	Facets    fetch.FacetFetcher
	Projector *pills.Projector
	Registry  *session.Registry
	Redis     *redis.Client
	// Closers run on Close after the registry has stopped.
	Closers []func() error
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Deps
}

// NewRouter builds the route tree. It is separate from NewServer so tests
// can drive it with httptest.
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Deps) chi.Router {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"source":   cfg.Catalog.Source,
			"sessions": deps.Registry.Len(),
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "catalog_rate_limit",
		}, logger))

		catalogHandler := transport.NewCatalogHandler(deps.Products, deps.Facets, deps.Projector, logger)
		catalogHandler.RegisterRoutes(r)
		if cfg.Catalog.Source == config.SourcePostgres {
			catalogHandler.RegisterSourceRoutes(r)
		}

		transport.NewSessionHandler(deps.Registry, logger).RegisterRoutes(r)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, deps),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}
}

// Close stops every session and releases backing resources.
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Registry != nil {
		s.deps.Registry.Close()
	}

	for _, closeFn := range s.deps.Closers {
		if err := closeFn(); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
