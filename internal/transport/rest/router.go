package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/salescrm/internal/auth"
	"github.com/frahmantamala/salescrm/internal/transport/middleware"
	"github.com/frahmantamala/salescrm/internal/transport/swagger"
	"github.com/frahmantamala/salescrm/internal/user"
)

// Resource mounts the read routes of one record type under /api/v1/{Path}.
type Resource struct {
	Path   string
	Routes func(chi.Router)
}

type RouterConfig struct {
	Verifier       auth.TokenVerifier
	UserHandler    *user.Handler
	Resources      []Resource
	Health         map[string]Pinger
	HTTPMetrics    *middleware.HTTPMetrics
	MetricsPath    string
	MetricsHandler http.Handler
	AllowedOrigins string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router chi.Router, cfg RouterConfig) {
	healthHandler := NewHealthHandler(cfg.Health)

	// Apply global middleware
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(cfg.Logger))
	if cfg.HTTPMetrics != nil {
		router.Use(cfg.HTTPMetrics.Middleware)
	}

	// Serve the OpenAPI document at root (outside API prefix)
	router.Get(swagger.SpecPath, swagger.SpecHandler)
	router.Handle("/swagger/*", swagger.Handler())

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, cfg.MetricsHandler)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.LoggingMiddleware(cfg.Logger))
			pr.Use(middleware.Authenticate(cfg.Verifier, cfg.Logger))

			if cfg.UserHandler != nil {
				pr.Get("/me", cfg.UserHandler.GetCurrentUser)
			}
			for _, res := range cfg.Resources {
				pr.Route("/"+res.Path, res.Routes)
			}
		})
	})
}
