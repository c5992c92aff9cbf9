// Package suggest recommends crops for a soil profile.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Suggestion sources.
const (
	SourceModel       = "model"
	SourceStatic      = "static"
	SourceUnavailable = "unavailable"
)

// Request describes the field a suggestion is wanted for. Values are passed as
// entered; numeric fields may be empty or unparseable.
type Request struct {
	SoilType         string
	PH               string
	OrganicMatterPct string
	Drainage         string
	Location         string
	Crop             string
}

// Suggestion is a ranked list of crops with a free-text rationale. Crops is
// never nil.
type Suggestion struct {
	TopCrop   string
	Crops     []string
	Rationale string
	Source    string
}

// Backend produces suggestions, typically from a generative model.
type Backend interface {
	Suggest(ctx context.Context, req Request) (*Suggestion, error)
	Name() string
}

// ServiceConfig holds configuration for the suggestion service.
type ServiceConfig struct {
	// Backend is optional. Without one, suggestions come from the soil table.
	Backend Backend

	Logger zerolog.Logger
}

// Service answers crop suggestion requests. It never fails: backend errors
// produce an empty suggestion.
type Service struct {
	backend Backend
	logger  zerolog.Logger
}

// NewService creates a new suggestion service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		backend: cfg.Backend,
		logger:  cfg.Logger,
	}
}

// Suggest returns ranked crops for the request.
func (s *Service) Suggest(ctx context.Context, req Request) Suggestion {
	if s.backend == nil {
		return StaticSuggestion(req)
	}

	out, err := s.backend.Suggest(ctx, req)
	if err != nil || out == nil {
		s.logger.Warn().Err(err).
			Str("backend", s.backend.Name()).
			Str("soil_type", req.SoilType).
			Msg("crop suggestion backend failed")
		return Suggestion{Crops: []string{}, Source: SourceUnavailable}
	}

	result := *out
	result.TopCrop = strings.TrimSpace(result.TopCrop)
	result.Crops = Normalize(result.TopCrop, result.Crops)
	if result.Source == "" {
		result.Source = SourceModel
	}
	return result
}

// Normalize puts topCrop at the front of crops when it is missing from the list
// and drops blank names. The input slice is not modified.
func Normalize(topCrop string, crops []string) []string {
	topCrop = strings.TrimSpace(topCrop)
	out := make([]string, 0, len(crops)+1)
	found := false
	for _, c := range crops {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if c == topCrop {
			found = true
		}
		out = append(out, c)
	}
	if topCrop != "" && !found {
		out = append([]string{topCrop}, out...)
	}
	return out
}

var staticBySoil = map[string][]string{
	"clay":  {"Rice", "Sugarcane", "Wheat"},
	"loam":  {"Wheat", "Maize", "Soybean"},
	"sandy": {"Groundnut", "Millet", "Cotton"},
}

var staticDefault = []string{"Wheat", "Rice", "Maize"}

// StaticSuggestion ranks crops from a fixed soil-type table.
func StaticSuggestion(req Request) Suggestion {
	key := strings.ToLower(strings.TrimSpace(req.SoilType))
	if key == "loamy" {
		key = "loam"
	}
	crops, ok := staticBySoil[key]
	if !ok {
		crops = staticDefault
	}

	rationale := fmt.Sprintf("Based on soil=%s, pH=%s, drainage=%s", req.SoilType, req.PH, req.Drainage)
	if req.Location != "" {
		rationale += ", location=" + req.Location
	}
	rationale += "."

	return Suggestion{
		TopCrop:   crops[0],
		Crops:     append([]string(nil), crops...),
		Rationale: rationale,
		Source:    SourceStatic,
	}
}
