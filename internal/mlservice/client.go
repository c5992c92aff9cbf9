// Package mlservice is a client for the yield-prediction and irrigation-planning
// inference service.
package mlservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harvestiq/harvestiq/internal/provider/resilience"
)

const (
	// ProviderName identifies the inference service in health and metrics.
	ProviderName = "ml-service"

	// DefaultBaseURL is where the inference service listens in local deployments.
	DefaultBaseURL = "http://127.0.0.1:5000"
)

// Errors returned by the client.
var (
	ErrModelNotLoaded = errors.New("yield model not loaded")
)

// APIError is a non-2xx answer from the inference service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ML API %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match a 503 against ErrModelNotLoaded.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusServiceUnavailable {
		return ErrModelNotLoaded
	}
	return nil
}

// ClientConfig holds configuration for the inference service client.
type ClientConfig struct {
	// BaseURL is the service base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client calls the inference service.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new inference service client.
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
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Predict asks the model for a yield estimate, feature weights and the crop cycle.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	var resp PredictResponse
	if err := c.post(ctx, "/predict", req, &resp); err != nil {
		return nil, fmt.Errorf("predicting yield for %s: %w", req.CropType, err)
	}
	return &resp, nil
}

// Irrigation asks the planner for a week-by-week irrigation schedule.
func (c *Client) Irrigation(ctx context.Context, req IrrigationRequest) (*IrrigationResponse, error) {
	if req.WeeklyForecast == nil {
		req.WeeklyForecast = []WeeklyForecastDay{}
	}
	var resp IrrigationResponse
	if err := c.post(ctx, "/irrigation", req, &resp); err != nil {
		return nil, fmt.Errorf("planning irrigation for %s: %w", req.CropType, err)
	}
	return &resp, nil
}

// Health reports whether the service is up and has a model loaded.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.call(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("checking ML service health: %w", err)
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPost, path, in, out)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	err := c.httpClient.DoJSON(ctx, method, c.baseURL+path, nil, in, out)

	var statusErr *resilience.StatusError
	if errors.As(err, &statusErr) {
		apiErr := &APIError{
			StatusCode: statusErr.StatusCode,
			Message:    errorMessage(statusErr.Body, statusErr.StatusCode),
		}
		c.logger.Warn().
			Int("status", apiErr.StatusCode).
			Str("path", path).
			Str("message", apiErr.Message).
			Msg("ML service returned an error")
		return apiErr
	}
	return err
}

// errorMessage extracts {"error": "..."} from a failed response, falling back to
// the raw body and then the status text.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if len(body) > 0 {
		return string(body)
	}
	return http.StatusText(status)
}
