package handler

import (
	"context"
	"net/http"

	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/api/response"
	"github.com/harvestiq/harvestiq/internal/suggest"
)

// Suggester recommends crops. *suggest.Service satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) suggest.Suggestion
}

// SuggestHandler handles crop suggestion endpoints.
type SuggestHandler struct {
	suggester Suggester
}

// NewSuggestHandler creates a new SuggestHandler.
func NewSuggestHandler(suggester Suggester) *SuggestHandler {
	return &SuggestHandler{suggester: suggester}
}

// SuggestCrops handles POST /v1/suggestions/crops. Backend failures are not
// errors: the response then carries an empty crop list.
func (h *SuggestHandler) SuggestCrops(w http.ResponseWriter, r *http.Request) {
	var input models.CropSuggestionRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if fieldErrors := validateRequest(&input); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	s := h.suggester.Suggest(r.Context(), suggest.Request{
		SoilType:         input.Soil.Type,
		PH:               string(input.Soil.PH),
		OrganicMatterPct: string(input.Soil.OrganicMatterPct),
		Drainage:         input.Soil.Drainage,
		Location:         input.Location,
		Crop:             input.Crop,
	})

	crops := s.Crops
	if crops == nil {
		crops = []string{}
	}
	response.JSON(w, r, http.StatusOK, models.CropSuggestion{
		TopCrop:   s.TopCrop,
		Crops:     crops,
		Rationale: s.Rationale,
		Source:    s.Source,
	})
}
