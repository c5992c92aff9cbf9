// Package weather provides cached daily weather forecasts for named locations.
package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/harvestiq/harvestiq/internal/telemetry"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetForecast fetches current conditions and a daily forecast of the given
	// number of days for a location query (place name or "lat,lon").
	GetForecast(ctx context.Context, location string, days int) (*Forecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records cache hits and misses (optional).
	Metrics *telemetry.ProviderMetrics

	// CacheTTL is how long to cache forecasts (default: 30 minutes).
	// Daily aggregates change slowly, so a long TTL is acceptable.
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 6 hours).
	StaleIfErrorTTL time.Duration

	// FetchTimeout bounds a shared provider call (default: 30 seconds).
	// Shared calls do not inherit any one caller's cancellation.
	FetchTimeout time.Duration
}

// Service provides weather data with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *telemetry.ProviderMetrics
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	fetchTimeout    time.Duration

	group singleflight.Group

	mu              sync.RWMutex
	forecastCache   map[string]*cachedForecast
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cachedForecast struct {
	forecast  *Forecast
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 6 * time.Hour
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 30 * time.Second
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		fetchTimeout:    fetchTimeout,
		forecastCache:   make(map[string]*cachedForecast),
		cleanupInterval: 10 * time.Minute,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// GetForecast returns the daily forecast for a location.
// Uses cached data if available and not expired; concurrent misses for the same
// location share one provider call.
func (s *Service) GetForecast(ctx context.Context, location string, days int) (*Forecast, error) {
	key, err := cacheKey(location, days)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	if cached, ok := s.forecastCache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.metrics.RecordCacheHit(s.provider.Name(), "forecast")
		return cached.forecast, nil
	}
	s.mu.RUnlock()
	s.metrics.RecordCacheMiss(s.provider.Name(), "forecast")

	// Callers that give up stop waiting; the shared fetch keeps going for the rest.
	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetchForecast(fetchCtx, location, days, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Forecast), nil
	}
}

// fetchForecast fetches a forecast from the provider and updates the cache.
func (s *Service) fetchForecast(ctx context.Context, location string, days int, key string) (*Forecast, error) {
	s.logger.Debug().
		Str("location", location).
		Int("days", days).
		Str("provider", s.provider.Name()).
		Msg("fetching forecast from provider")

	forecast, err := s.provider.GetForecast(ctx, location, days)
	if err == nil && len(forecast.Days) == 0 {
		err = ErrNoDataForLocation
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("location", location).
			Msg("failed to fetch forecast")

		s.mu.RLock()
		cached, ok := s.forecastCache[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Str("location", location).
				Msg("serving stale forecast data due to provider error")
			return cached.forecast, nil
		}

		if errors.Is(err, ErrNoDataForLocation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	now := time.Now()
	s.mu.Lock()
	s.forecastCache[key] = &cachedForecast{
		forecast:  forecast,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded(now)
	s.mu.Unlock()

	return forecast, nil
}

// cacheKey validates the query and builds the cache key for it.
func cacheKey(location string, days int) (string, error) {
	normalized := NormalizeLocation(location)
	if normalized == "" {
		return "", ErrInvalidLocation
	}
	if days < MinForecastDays || days > MaxForecastDays {
		return "", ErrInvalidDays
	}
	return fmt.Sprintf("%s|%d", normalized, days), nil
}

// cleanupIfNeeded removes entries too old to serve even as stale data.
// Callers must hold s.mu for writing.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.forecastCache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.forecastCache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired weather cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecastCache = make(map[string]*cachedForecast)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	for _, c := range s.forecastCache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}

	return CacheStats{
		ForecastEntries:      len(s.forecastCache),
		ForecastFreshEntries: fresh,
		Provider:             s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	ForecastEntries      int
	ForecastFreshEntries int
	Provider             string
}
