package mlservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	CropType   string  `json:"crop_type"`
	AvgTemp    float64 `json:"avg_temp"`
	TMax       float64 `json:"tmax"`
	TMin       float64 `json:"tmin"`
	SowingDate string  `json:"sowing_date"` // YYYY-MM-DD
}

// Prediction is the point yield estimate with its optional interval.
type Prediction struct {
	YieldTHa float64  `json:"yield_t_ha"`
	CILower  *float64 `json:"ci_lower,omitempty"`
	CIUpper  *float64 `json:"ci_upper,omitempty"`
	CropType string   `json:"crop_type"`
}

// FeatureImportance is a named model weight, as a fraction of 1.
type FeatureImportance struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

// PredictResponse is the body returned by POST /predict.
type PredictResponse struct {
	Prediction         Prediction          `json:"prediction"`
	CropCycle          json.RawMessage     `json:"crop_cycle,omitempty"`
	FeatureImportances []FeatureImportance `json:"feature_importances"`
	ExplanationText    string              `json:"explanation_text"`
}

// WeeklyForecastDay is one day of weather sent to the irrigation planner.
type WeeklyForecastDay struct {
	Day  string  `json:"day,omitempty"`
	Temp float64 `json:"temp"`
	Rain float64 `json:"rain"`
}

// SoilProfile is the soil description accepted by the irrigation planner.
type SoilProfile struct {
	Type             string   `json:"type,omitempty"`
	PH               *float64 `json:"ph,omitempty"`
	OrganicMatterPct *float64 `json:"organicMatterPct,omitempty"`
	Drainage         string   `json:"drainage,omitempty"`
}

// IrrigationRequest is the body of POST /irrigation.
type IrrigationRequest struct {
	CropType       string              `json:"crop_type"`
	SowingDate     string              `json:"sowing_date"`
	WeeklyForecast []WeeklyForecastDay `json:"weekly_forecast"`
	CropCycle      json.RawMessage     `json:"crop_cycle,omitempty"`
	SoilProfile    *SoilProfile        `json:"soil_profile,omitempty"`
}

// ScheduleEntry is one window of the returned irrigation plan.
type ScheduleEntry struct {
	Week   string `json:"week"`
	Action string `json:"action"`
	Amount Amount `json:"amount,omitempty"`
	Reason string `json:"reason"`
}

// IrrigationResponse is the body returned by POST /irrigation.
type IrrigationResponse struct {
	CropType     string          `json:"crop_type"`
	SowingDate   string          `json:"sowing_date"`
	Schedule     []ScheduleEntry `json:"irrigation_schedule"`
	WaterSavings float64         `json:"water_savings"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Amount is an irrigation depth in millimetres. The planner sends it as a
// string ("50") but numbers are accepted too; null and absent decode to "".
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = Amount(n.String())
	}
	return nil
}

// Float returns the amount as a number. ok is false when it is empty or not numeric.
func (a Amount) Float() (float64, bool) {
	v, err := strconv.ParseFloat(string(a), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
