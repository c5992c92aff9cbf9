package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/api/response"
	"github.com/harvestiq/harvestiq/internal/forecast"
)

// IrrigationHandler exposes the irrigation plan helpers.
type IrrigationHandler struct{}

// NewIrrigationHandler creates a new IrrigationHandler.
func NewIrrigationHandler() *IrrigationHandler {
	return &IrrigationHandler{}
}

// ResolveSchedule handles POST /v1/irrigation/resolve - turn "Week N-M" labels
// into calendar ranges and attach per-area volumes.
func (h *IrrigationHandler) ResolveSchedule(w http.ResponseWriter, r *http.Request) {
	var input models.ResolveScheduleRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if fieldErrors := validateRequest(&input); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	schedule := forecast.ResolveScheduleDates(
		forecast.FromAPISchedule(input.Schedule),
		parseDate(input.SowingDate),
		input.Locale,
	)
	response.JSON(w, r, http.StatusOK, forecast.ToAPISchedule(forecast.AttachVolumes(schedule)))
}

// SummarizeUsage handles POST /v1/irrigation/summary - compare a plan to the
// conventional seasonal baseline.
func (h *IrrigationHandler) SummarizeUsage(w http.ResponseWriter, r *http.Request) {
	var input models.WaterUsageRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if fieldErrors := validateRequest(&input); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	usage := forecast.SummarizeWaterUsage(forecast.FromAPISchedule(input.Schedule), input.WaterSavingsPct)
	response.JSON(w, r, http.StatusOK, forecast.ToAPIWaterUsage(usage))
}

// GetVolume handles GET /v1/irrigation/volume?amountMm= - litres per hectare
// and per acre for a water depth.
func (h *IrrigationHandler) GetVolume(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amountMm")
	if raw == "" {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "amountMm", Message: "is required", Code: "required"},
		})
		return
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "amountMm", Message: "must be a finite number", Code: "number"},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.VolumeResponse{
		AmountMm: amount,
		Volume:   forecast.ToAPIVolume(forecast.PerUnitWaterVolume(amount)),
	})
}
