package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/harvestiq/harvestiq/internal/api/middleware"
	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/api/response"
	"github.com/harvestiq/harvestiq/internal/forecast"
)

const dateLayout = "2006-01-02"

// Generator produces forecasts for a session. *forecast.Service satisfies it.
type Generator interface {
	Generate(ctx context.Context, session *forecast.Session, req forecast.Request) (*forecast.Result, error)
}

// ForecastHandler handles forecast endpoints.
type ForecastHandler struct {
	generator Generator
	sessions  *forecast.SessionStore
	logger    zerolog.Logger
	now       func() time.Time
}

// ForecastHandlerConfig holds configuration for the forecast handler.
type ForecastHandlerConfig struct {
	Generator Generator
	Sessions  *forecast.SessionStore
	Logger    zerolog.Logger

	// Now returns the evaluation time for risk scoring (default: time.Now).
	Now func() time.Time
}

// NewForecastHandler creates a new ForecastHandler.
func NewForecastHandler(cfg ForecastHandlerConfig) *ForecastHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ForecastHandler{
		generator: cfg.Generator,
		sessions:  cfg.Sessions,
		logger:    cfg.Logger,
		now:       now,
	}
}

// GenerateForecast handles POST /v1/forecasts - generate a forecast for the
// caller's session. Upstream outages degrade the result and are reported as
// notices; a request superseded by a newer one for the same session gets 409.
func (h *ForecastHandler) GenerateForecast(w http.ResponseWriter, r *http.Request) {
	var input models.ForecastRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if fieldErrors := validateRequest(&input); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	req := forecast.Request{
		District:   input.District,
		Crop:       input.Crop,
		Season:     input.Season,
		Scenario:   input.Scenario,
		SowingDate: parseDate(input.SowingDate),
		Soil:       forecast.FromAPISoil(input.Soil),
		Locale:     input.Locale,
	}

	session := h.sessions.Get(SessionKey(r))
	result, err := h.generator.Generate(r.Context(), session, req)
	if err != nil {
		var verr *forecast.ValidationError
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, r, "validation failed", verr.Errors)
		case errors.Is(err, forecast.ErrStaleGeneration):
			response.Conflict(w, r, "superseded by a newer forecast request")
		case errors.Is(err, context.Canceled):
			// Client went away; nothing to write
		default:
			h.logger.Error().Err(err).
				Str("request_id", middleware.GetRequestID(r.Context())).
				Msg("forecast generation failed")
			response.InternalError(w, r, "failed to generate forecast")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, forecast.ToAPIForecast(result))
}

// GetCurrentForecast handles GET /v1/forecasts/current - the last forecast
// committed to the caller's session.
func (h *ForecastHandler) GetCurrentForecast(w http.ResponseWriter, r *http.Request) {
	current := h.current(r)
	if current == nil {
		response.NotFound(w, r, "no forecast has been generated for this session")
		return
	}
	response.JSON(w, r, http.StatusOK, forecast.ToAPIForecast(current))
}

// current returns the caller's committed forecast without creating a session.
func (h *ForecastHandler) current(r *http.Request) *forecast.Result {
	session, ok := h.sessions.Peek(SessionKey(r))
	if !ok {
		return nil
	}
	return session.Current()
}

// ComputeRisk handles POST /v1/forecasts/risk - score crop stress for a
// caller-supplied week of weather.
func (h *ForecastHandler) ComputeRisk(w http.ResponseWriter, r *http.Request) {
	var input models.RiskRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if fieldErrors := validateRequest(&input); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	risk := forecast.ComputeRisk(
		forecast.FromAPIWeekly(input.Weekly),
		forecast.FromAPISoil(input.Soil),
		input.Crop,
		parseDate(input.SowingDate),
		h.now(),
	)
	response.JSON(w, r, http.StatusOK, forecast.ToAPIRisk(risk))
}

// parseDate parses a validated YYYY-MM-DD date. Empty input gives nil.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
