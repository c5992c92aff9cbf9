// Package main provides the entrypoint for the HarvestIQ API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/harvestiq/harvestiq/internal/api"
	"github.com/harvestiq/harvestiq/internal/api/handler"
	"github.com/harvestiq/harvestiq/internal/api/middleware"
	"github.com/harvestiq/harvestiq/internal/auth"
	"github.com/harvestiq/harvestiq/internal/config"
	"github.com/harvestiq/harvestiq/internal/database"
	"github.com/harvestiq/harvestiq/internal/forecast"
	"github.com/harvestiq/harvestiq/internal/history"
	"github.com/harvestiq/harvestiq/internal/mlservice"
	"github.com/harvestiq/harvestiq/internal/provider/resilience"
	"github.com/harvestiq/harvestiq/internal/suggest"
	"github.com/harvestiq/harvestiq/internal/suggest/gemini"
	"github.com/harvestiq/harvestiq/internal/telemetry"
	"github.com/harvestiq/harvestiq/internal/weather"
	"github.com/harvestiq/harvestiq/internal/weather/weatherapi"
	"github.com/harvestiq/harvestiq/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "harvestiq-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting HarvestIQ API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Prediction history: Postgres when enabled, otherwise process memory
	var (
		historyRepo history.Repository
		subsystems  []handler.Subsystem
	)
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database.Connection())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		repo := history.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure history schema")
		}
		historyRepo = repo
		subsystems = append(subsystems, handler.Subsystem{
			Name:     "database",
			Critical: true,
			Check:    func(ctx context.Context) error { return database.Check(ctx, pool) },
		})
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Name).
			Msg("database connected")
	} else {
		historyRepo = history.NewInMemoryRepository()
		log.Warn().Msg("database disabled - prediction history is kept in memory")
	}
	historyService := history.NewService(historyRepo)

	// Upstream clients share one health registry
	registry := resilience.NewRegistry()
	upstream := func(name string, timeout time.Duration) *resilience.Client {
		clientCfg := resilience.DefaultClientConfig(name)
		clientCfg.Timeout = timeout
		clientCfg.Registry = registry
		clientCfg.Observers = []resilience.Observer{providerMetrics}
		clientCfg.CircuitBreaker.Logger = log
		return resilience.NewClient(clientCfg)
	}

	if cfg.Weather.APIKey == "" {
		log.Warn().Msg("WEATHER_API_KEY not set - forecasts will use reference weather")
	}
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: weatherapi.NewClient(weatherapi.ClientConfig{
			APIKey:     cfg.Weather.APIKey,
			BaseURL:    cfg.Weather.BaseURL,
			HTTPClient: upstream(weatherapi.ProviderName, cfg.Weather.Timeout),
			Logger:     log,
		}),
		Logger:          log,
		Metrics:         providerMetrics,
		CacheTTL:        cfg.Weather.CacheTTL,
		StaleIfErrorTTL: cfg.Weather.StaleIfErrorTTL,
	})

	predictor := mlservice.NewClient(mlservice.ClientConfig{
		BaseURL:    cfg.MLService.BaseURL,
		HTTPClient: upstream(mlservice.ProviderName, cfg.MLService.Timeout),
		Logger:     log,
	})
	subsystems = append(subsystems, handler.Subsystem{
		Name: mlservice.ProviderName,
		Check: func(ctx context.Context) error {
			_, err := predictor.Health(ctx)
			return err
		},
	})

	forecastService := forecast.NewService(forecast.ServiceConfig{
		Weather:      weatherService,
		Predictor:    predictor,
		Logger:       log,
		ForecastDays: cfg.Weather.ForecastDays,
	})

	suggestCfg := suggest.ServiceConfig{Logger: log}
	if cfg.Suggest.GeminiAPIKey != "" {
		suggestCfg.Backend = gemini.NewClient(gemini.ClientConfig{
			APIKey:     cfg.Suggest.GeminiAPIKey,
			BaseURL:    cfg.Suggest.GeminiBaseURL,
			Model:      cfg.Suggest.GeminiModel,
			HTTPClient: upstream(gemini.ProviderName, cfg.Suggest.Timeout),
			Logger:     log,
		})
		log.Info().Str("model", cfg.Suggest.GeminiModel).Msg("crop suggestions use the language model")
	} else {
		log.Info().Msg("GEMINI_API_KEY not set - crop suggestions use the soil table")
	}
	suggestService := suggest.NewService(suggestCfg)

	// Bearer tokens are optional; without a key the /me routes are disabled
	var tokens middleware.TokenValidator
	if cfg.Auth.JWTSigningKey != "" {
		tokens = auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.Auth.JWTSigningKey,
			Issuer:     cfg.Auth.JWTIssuer,
		})
	} else {
		log.Warn().Msg("JWT_SIGNING_KEY not set - prediction history endpoints disabled")
	}

	// Keep district forecasts warm in this process's weather cache
	if cfg.Worker.RefreshInterval > 0 {
		refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
			Config: worker.RefreshConfig{
				Concurrency:  cfg.Worker.Concurrency,
				Timeout:      cfg.Worker.Timeout,
				ForecastDays: cfg.Weather.ForecastDays,
			},
			Logger:  log,
			Weather: weatherService,
		})
		go refreshJob.RunEvery(ctx, cfg.Worker.RefreshInterval)
		log.Info().Dur("interval", cfg.Worker.RefreshInterval).Msg("weather warm-up enabled")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		Generator:          forecastService,
		Sessions:           forecast.NewSessionStore(0),
		Suggester:          suggestService,
		Tokens:             tokens,
		History:            historyService,
		Registry:           registry,
		Subsystems:         subsystems,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RequireTLS:         cfg.Server.RequireTLS,
		ForecastRateLimit:  cfg.Server.ForecastRateLimit,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
