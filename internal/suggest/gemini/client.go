// Package gemini implements suggest.Backend on the Gemini generateContent API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harvestiq/harvestiq/internal/provider/resilience"
	"github.com/harvestiq/harvestiq/internal/suggest"
)

const (
	// ProviderName identifies this backend in health and metrics.
	ProviderName = "gemini"

	// DefaultBaseURL is the Generative Language API base URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the model used for suggestions.
	DefaultModel = "gemini-1.5-flash"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("gemini returned no candidates")

// ClientConfig holds configuration for the Gemini client.
type ClientConfig struct {
	// APIKey is the Generative Language API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// Model is the model name (optional, defaults to DefaultModel).
	Model string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client asks a Gemini model for crop suggestions.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Gemini client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return ProviderName
}

// Suggest asks the model to rank crops for the soil profile. A reply that is not
// the expected JSON is returned as the rationale with no crops.
func (c *Client) Suggest(ctx context.Context, req suggest.Request) (*suggest.Suggestion, error) {
	body := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: BuildPrompt(req)}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     0.4,
			TopP:            0.9,
			TopK:            32,
			MaxOutputTokens: 512,
		},
	}

	header := http.Header{}
	header.Set("x-goog-api-key", c.apiKey)

	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, url, header, body, &resp); err != nil {
		return nil, fmt.Errorf("generating crop suggestion: %w", err)
	}

	text, ok := resp.text()
	if !ok {
		return nil, ErrEmptyResponse
	}
	return ParseReply(text), nil
}

// ParseReply decodes the model's JSON answer. Markdown code fences around the
// JSON are tolerated.
func ParseReply(text string) *suggest.Suggestion {
	var reply struct {
		TopCrop   string   `json:"topCrop"`
		Crops     []string `json:"crops"`
		Rationale string   `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &reply); err != nil {
		rationale := strings.TrimSpace(text)
		if rationale == "" {
			rationale = "No rationale."
		}
		return &suggest.Suggestion{Crops: []string{}, Rationale: rationale, Source: suggest.SourceModel}
	}

	return &suggest.Suggestion{
		TopCrop:   strings.TrimSpace(reply.TopCrop),
		Crops:     suggest.Normalize(reply.TopCrop, reply.Crops),
		Rationale: reply.Rationale,
		Source:    suggest.SourceModel,
	}
}

// BuildPrompt renders the agronomy prompt for a request.
func BuildPrompt(req suggest.Request) string {
	var b strings.Builder
	b.WriteString("You are an agronomy assistant. Given the soil profile below, decide which crop will most likely produce the HIGHEST YIELD for the next season, and rank the top 3.\n\n")
	b.WriteString("Soil Profile:\n")
	fmt.Fprintf(&b, "- Type: %s\n", orDefault(req.SoilType, "unknown"))
	fmt.Fprintf(&b, "- pH: %s\n", numberOrUnknown(req.PH))
	fmt.Fprintf(&b, "- Organic Matter (%%): %s\n", numberOrUnknown(req.OrganicMatterPct))
	fmt.Fprintf(&b, "- Drainage: %s\n", orDefault(req.Drainage, "unknown"))
	fmt.Fprintf(&b, "- Location/Region: %s\n", orDefault(req.Location, "unspecified"))
	fmt.Fprintf(&b, "- Intended Crop (optional): %s\n\n", orDefault(req.Crop, "none"))
	b.WriteString("Instructions:\n")
	b.WriteString("- Think about yield drivers (pH range fit, drainage tolerance, OM%, typical response).\n")
	b.WriteString("- If region provided, reflect common local choices; otherwise be region-agnostic.\n")
	b.WriteString("- Return STRICT JSON only with keys:\n")
	b.WriteString("  { \"topCrop\": string, \"crops\": string[], \"rationale\": string }\n")
	b.WriteString("- Put the highest-yield choice in topCrop and first in crops.\n")
	return b.String()
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func numberOrUnknown(s string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "unknown"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimPrefix(t, "json")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// Generative Language API structures.

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r *generateResponse) text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return r.Candidates[0].Content.Parts[0].Text, true
}
