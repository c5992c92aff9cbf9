// Package api provides the HTTP API for HarvestIQ.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/harvestiq/harvestiq/internal/api/handler"
	"github.com/harvestiq/harvestiq/internal/api/middleware"
	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/api/response"
	"github.com/harvestiq/harvestiq/internal/forecast"
	"github.com/harvestiq/harvestiq/internal/history"
	"github.com/harvestiq/harvestiq/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Generator handler.Generator
	Sessions  *forecast.SessionStore
	Suggester handler.Suggester

	// Tokens and History enable the signed-in /me routes. Without either,
	// the routes are not mounted.
	Tokens  middleware.TokenValidator
	History *history.Service

	Registry   *resilience.Registry
	Subsystems []handler.Subsystem

	CORSAllowedOrigins []string
	RequireTLS         bool

	// ForecastRateLimit overrides the per-client forecast generations per
	// minute (default: middleware.ForecastRateLimit).
	ForecastRateLimit int

	// Now returns the evaluation time for risk scoring (default: time.Now).
	Now func() time.Time
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "harvestiq-api"
	}
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	forecastLimit := middleware.ForecastRateLimit
	if cfg.ForecastRateLimit > 0 {
		forecastLimit.RequestLimit = cfg.ForecastRateLimit
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.SessionHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After", "Location"},
		MaxAge:         300,
	}))
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // Reject non-JSON bodies

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, models.NewProblem(
			models.ProblemTypeValidation,
			"Method not allowed",
			http.StatusMethodNotAllowed,
			middleware.GetRequestID(r.Context()),
		))
	})

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Registry:   cfg.Registry,
		Subsystems: cfg.Subsystems,
	})
	metadataHandler := handler.NewMetadataHandler()
	forecastHandler := handler.NewForecastHandler(handler.ForecastHandlerConfig{
		Generator: cfg.Generator,
		Sessions:  cfg.Sessions,
		Logger:    cfg.Logger,
		Now:       cfg.Now,
	})
	irrigationHandler := handler.NewIrrigationHandler()
	suggestHandler := handler.NewSuggestHandler(cfg.Suggester)

	// Identify signed-in callers where a token is offered; sessions are keyed
	// on the user when present.
	identify := func(next http.Handler) http.Handler { return next }
	if cfg.Tokens != nil {
		identify = middleware.OptionalAuth(cfg.Tokens)
	}

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Metadata endpoints (public) - standard rate limiting
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/catalog", metadataHandler.GetCatalog)
		})

		// Forecasts - per-client limits on generation, which calls three upstreams
		r.Route("/forecasts", func(r chi.Router) {
			r.Use(identify)
			r.With(middleware.RateLimitByClient(forecastLimit)).Post("/", forecastHandler.GenerateForecast)
			r.With(middleware.RateLimitByClient(middleware.StandardRateLimit)).Get("/current", forecastHandler.GetCurrentForecast)
			r.With(middleware.RateLimitByClient(middleware.StandardRateLimit)).Post("/risk", forecastHandler.ComputeRisk)
		})

		// Irrigation helpers (pure computation) - standard rate limiting
		r.Route("/irrigation", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Post("/resolve", irrigationHandler.ResolveSchedule)
			r.Post("/summary", irrigationHandler.SummarizeUsage)
			r.Get("/volume", irrigationHandler.GetVolume)
		})

		// Crop suggestions - language model backed, strict rate limiting
		r.Route("/suggestions", func(r chi.Router) {
			r.Use(identify)
			r.Use(middleware.RateLimitByClient(middleware.SuggestRateLimit)) // 10 req/min
			r.Post("/crops", suggestHandler.SuggestCrops)
		})

		// Me endpoints (authenticated) - user-based rate limiting
		if cfg.Tokens != nil && cfg.History != nil {
			predictionsHandler := handler.NewPredictionsHandler(cfg.History, cfg.Sessions, cfg.Logger)
			r.Route("/me/predictions", func(r chi.Router) {
				r.Use(middleware.Auth(cfg.Tokens))
				r.Use(middleware.RateLimitByClient(middleware.StandardRateLimit)) // 100 req/min per user
				r.Get("/", predictionsHandler.ListPredictions)
				r.Post("/", predictionsHandler.SavePrediction)
				r.Delete("/{predictionId}", predictionsHandler.DeletePrediction)
			})
		}
	})

	return r
}
