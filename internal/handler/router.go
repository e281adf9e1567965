package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type RouterOptions struct {
	AllowedOrigins []string
	RequireHTTPS   bool
	HealthChecks   map[string]HealthCheck
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(voterHandler *VoterHandler, adminHandler *AdminHandler, opts RouterOptions, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if opts.RequireHTTPS {
		router.Use(requireHTTPS)
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", healthHandler(opts.HealthChecks, logger))
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/accounts", voterHandler.RegisterRoutes)
	router.Route("/api/admin", adminHandler.RegisterRoutes)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(logger, w, http.StatusNotFound, ErrorResponse{Error: "endpoint not found"})
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(logger, w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})

	return router
}

// healthHandler runs every check concurrently and answers 503 if any fails.
func healthHandler(checks map[string]HealthCheck, logger *zap.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := make([]string, len(names))
		var g errgroup.Group
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				if err := checks[name](ctx); err != nil {
					results[i] = err.Error()
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		err := g.Wait()

		resp := healthResponse{Status: "healthy", Service: "election-service", Checks: map[string]string{}}
		for i, name := range names {
			resp.Checks[name] = results[i]
		}

		status := http.StatusOK
		if err != nil {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			logger.Warn("Health check failed", zap.Error(err))
		}
		respondWithJSON(logger, w, status, resp)
	}
}
