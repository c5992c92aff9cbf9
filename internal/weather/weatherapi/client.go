// Package weatherapi implements weather.Provider against the WeatherAPI.com
// forecast endpoint.
package weatherapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harvestiq/harvestiq/internal/provider/resilience"
	"github.com/harvestiq/harvestiq/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "weatherapi"

	// DefaultBaseURL is the WeatherAPI.com v1 base URL.
	DefaultBaseURL = "https://api.weatherapi.com/v1"
)

// ClientConfig holds configuration for the WeatherAPI.com client.
type ClientConfig struct {
	// APIKey is the WeatherAPI.com key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to WeatherAPI.com).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a WeatherAPI.com client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new WeatherAPI.com client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetForecast fetches current conditions and a daily forecast for a location.
func (c *Client) GetForecast(ctx context.Context, location string, days int) (*weather.Forecast, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", location)
	q.Set("days", strconv.Itoa(days))
	q.Set("aqi", "no")
	q.Set("alerts", "no")

	var resp forecastResponse
	if err := c.httpClient.DoJSON(ctx, http.MethodGet, c.baseURL+"/forecast.json?"+q.Encode(), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching forecast for %q: %w", location, err)
	}

	return c.toForecast(location, &resp), nil
}

// toForecast converts a WeatherAPI.com response to the domain model.
func (c *Client) toForecast(location string, resp *forecastResponse) *weather.Forecast {
	forecast := &weather.Forecast{
		Location:     location,
		ResolvedName: resolvedName(resp.Location.Name, resp.Location.Region),
		Lat:          resp.Location.Lat,
		Lon:          resp.Location.Lon,
		Days:         make([]weather.DailyForecast, 0, len(resp.Forecast.ForecastDay)),
		FetchedAt:    time.Now(),
	}

	if resp.Current != nil {
		forecast.Current = &weather.Current{
			Temperature: resp.Current.TempC,
			Humidity:    resp.Current.Humidity,
			Condition:   resp.Current.Condition.Text,
			Icon:        iconURL(resp.Current.Condition.Icon),
			ObservedAt:  time.Unix(resp.Current.LastUpdatedEpoch, 0),
		}
	}

	for _, fd := range resp.Forecast.ForecastDay {
		date, err := time.Parse("2006-01-02", fd.Date)
		if err != nil {
			c.logger.Warn().Err(err).Str("date", fd.Date).Msg("skipping forecast day with unparseable date")
			continue
		}
		forecast.Days = append(forecast.Days, weather.DailyForecast{
			Date:          date,
			AvgTemp:       fd.Day.AvgTempC,
			MaxTemp:       fd.Day.MaxTempC,
			MinTemp:       fd.Day.MinTempC,
			TotalPrecipMm: fd.Day.TotalPrecipMm,
			AvgHumidity:   fd.Day.AvgHumidity,
			Condition:     fd.Day.Condition.Text,
			Icon:          iconURL(fd.Day.Condition.Icon),
		})
	}

	return forecast
}

func resolvedName(name, region string) string {
	if region == "" || region == name {
		return name
	}
	return name + ", " + region
}

// iconURL turns the protocol-relative icon path into an https URL.
func iconURL(icon string) string {
	if strings.HasPrefix(icon, "//") {
		return "https:" + icon
	}
	return icon
}

// WeatherAPI.com response structures.

type condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

type forecastResponse struct {
	Location struct {
		Name    string  `json:"name"`
		Region  string  `json:"region"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	} `json:"location"`
	Current *struct {
		LastUpdatedEpoch int64     `json:"last_updated_epoch"`
		TempC            float64   `json:"temp_c"`
		Humidity         float64   `json:"humidity"`
		Condition        condition `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC      float64   `json:"maxtemp_c"`
				MinTempC      float64   `json:"mintemp_c"`
				AvgTempC      float64   `json:"avgtemp_c"`
				TotalPrecipMm float64   `json:"totalprecip_mm"`
				AvgHumidity   *float64  `json:"avghumidity"`
				Condition     condition `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}
