package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/harvestiq/harvestiq/internal/api/middleware"
	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/api/response"
	"github.com/harvestiq/harvestiq/internal/forecast"
	"github.com/harvestiq/harvestiq/internal/history"
)

// PredictionsHandler handles the signed-in user's prediction history.
type PredictionsHandler struct {
	history  *history.Service
	sessions *forecast.SessionStore
	logger   zerolog.Logger
}

// NewPredictionsHandler creates a new PredictionsHandler.
func NewPredictionsHandler(historyService *history.Service, sessions *forecast.SessionStore, logger zerolog.Logger) *PredictionsHandler {
	return &PredictionsHandler{
		history:  historyService,
		sessions: sessions,
		logger:   logger,
	}
}

// ListPredictions handles GET /v1/me/predictions - saved predictions, newest first.
func (h *PredictionsHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, r, "validation failed", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer", Code: "gte"},
			})
			return
		}
		limit = n
	}

	page, err := h.history.List(r.Context(), GetUserID(r.Context()), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		h.internalError(w, r, err, "failed to list predictions")
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

// SavePrediction handles POST /v1/me/predictions - save the forecast currently
// shown in the caller's session. The body is optional; when it names a
// generation, the save fails with 409 if the session has moved on.
func (h *PredictionsHandler) SavePrediction(w http.ResponseWriter, r *http.Request) {
	var input models.SavePredictionRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(w, r, &input); err != nil && !errors.Is(err, response.ErrEmptyBody) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
	}

	var current *forecast.Result
	if session, ok := h.sessions.Peek(SessionKey(r)); ok {
		current = session.Current()
	}
	if current == nil {
		response.NotFound(w, r, "no forecast to save; generate one first")
		return
	}
	if input.Generation != nil && *input.Generation != current.Generation {
		response.Conflict(w, r, fmt.Sprintf(
			"forecast generation %d is no longer current (current is %d)", *input.Generation, current.Generation))
		return
	}

	saved, err := h.history.Save(r.Context(), GetUserID(r.Context()), current)
	if err != nil {
		h.internalError(w, r, err, "failed to save prediction")
		return
	}
	response.Created(w, r, "/v1/me/predictions/"+saved.ID, saved)
}

// DeletePrediction handles DELETE /v1/me/predictions/{predictionId}.
func (h *PredictionsHandler) DeletePrediction(w http.ResponseWriter, r *http.Request) {
	predictionID := chi.URLParam(r, "predictionId")
	if predictionID == "" {
		response.BadRequest(w, r, "predictionId is required", nil)
		return
	}

	err := h.history.Delete(r.Context(), GetUserID(r.Context()), predictionID)
	if err != nil {
		if errors.Is(err, history.ErrPredictionNotFound) {
			response.NotFound(w, r, "prediction not found")
			return
		}
		h.internalError(w, r, err, "failed to delete prediction")
		return
	}
	response.NoContent(w, r)
}

func (h *PredictionsHandler) internalError(w http.ResponseWriter, r *http.Request, err error, detail string) {
	h.logger.Error().Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Msg(detail)
	response.InternalError(w, r, detail)
}
