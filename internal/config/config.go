// Package config defines the process configuration for the HarvestIQ API and
// worker. Configuration is loaded once at startup and is immutable afterwards.
//
// Values are resolved in priority order: OS environment, then a .env file in
// the working directory, then the defaults declared on the struct tags.
package config

import (
	"time"

	"github.com/harvestiq/harvestiq/internal/database"
)

// Config is the top-level configuration.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development" validate:"required,oneof=local development test staging production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`

	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Weather   WeatherConfig
	MLService MLServiceConfig
	Suggest   SuggestConfig
	Telemetry TelemetryConfig
	Worker    WorkerConfig
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"APP_PORT" default:"8080" validate:"required,numeric"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	ReadTimeout        time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	// Forecast generation waits on three upstream calls, so the write timeout
	// exceeds the sum of the provider timeouts.
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequireTLS rejects plain-HTTP requests that did not arrive through a
	// TLS-terminating proxy.
	RequireTLS bool `envconfig:"REQUIRE_TLS" default:"false"`

	// ForecastRateLimit is the number of forecast generations allowed per
	// client per minute.
	ForecastRateLimit int `envconfig:"FORECAST_RATE_LIMIT" default:"20" validate:"min=1"`
}

// DatabaseConfig holds PostgreSQL settings. When Enabled is false, prediction
// history is kept in memory.
type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"false"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432" validate:"min=1,max=65535"`
	User            string        `envconfig:"DB_USER" default:"harvestiq"`
	Password        string        `envconfig:"DB_PASSWORD" default:"localdev"`
	Name            string        `envconfig:"DB_NAME" default:"harvestiq"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10" validate:"min=1"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5" validate:"min=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// Connection returns the connection settings for database.Connect.
func (c DatabaseConfig) Connection() database.Config {
	return database.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Name,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSigningKey string `envconfig:"JWT_SIGNING_KEY"`
	JWTIssuer     string `envconfig:"JWT_ISSUER" default:"harvestiq"`
}

// WeatherConfig holds weather provider settings.
type WeatherConfig struct {
	APIKey          string        `envconfig:"WEATHER_API_KEY"`
	BaseURL         string        `envconfig:"WEATHER_API_BASE_URL" default:"https://api.weatherapi.com/v1" validate:"required,url"`
	Timeout         time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
	CacheTTL        time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"30m"`
	StaleIfErrorTTL time.Duration `envconfig:"WEATHER_STALE_IF_ERROR_TTL" default:"6h"`
	ForecastDays    int           `envconfig:"WEATHER_FORECAST_DAYS" default:"7" validate:"min=1,max=14"`
}

// MLServiceConfig holds settings for the yield and irrigation model service.
type MLServiceConfig struct {
	BaseURL string        `envconfig:"ML_SERVICE_URL" default:"http://127.0.0.1:5000" validate:"required,url"`
	Timeout time.Duration `envconfig:"ML_SERVICE_TIMEOUT" default:"15s"`
}

// SuggestConfig holds crop suggestion backend settings. An empty API key
// selects the built-in soil table.
type SuggestConfig struct {
	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string        `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	GeminiBaseURL string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta" validate:"required,url"`
	Timeout       time.Duration `envconfig:"GEMINI_TIMEOUT" default:"20s"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OTLPEndpoint string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	SampleRatio  float64 `envconfig:"OTEL_SAMPLE_RATIO" default:"1" validate:"gte=0,lte=1"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	PubSubProjectID    string        `envconfig:"PUBSUB_PROJECT_ID"`
	PubSubSubscription string        `envconfig:"PUBSUB_SUBSCRIPTION" default:"weather-refresh-sub"`
	Concurrency        int           `envconfig:"WORKER_CONCURRENCY" default:"3" validate:"min=1,max=32"`
	Timeout            time.Duration `envconfig:"WORKER_TIMEOUT" default:"30s"`

	// RefreshInterval, when positive, makes the API warm its own weather
	// cache for every catalog district on this interval.
	RefreshInterval time.Duration `envconfig:"WEATHER_REFRESH_INTERVAL" default:"0s"`
}
