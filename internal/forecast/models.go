// Package forecast assembles crop forecasts: risk scoring, irrigation schedule
// localization and water-usage figures, plus the orchestration that fetches the
// upstream weather, yield and irrigation data they are derived from.
package forecast

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/harvestiq/harvestiq/internal/api/models"
)

// Forecast errors.
var (
	// ErrStaleGeneration is returned when a newer forecast generation was started
	// for the same session before this one finished.
	ErrStaleGeneration = errors.New("forecast superseded by a newer request")
)

// WeatherSample is one day of forecast weather.
type WeatherSample struct {
	// Day is a weekday label or an ISO date.
	Day string

	// Temperature in Celsius.
	Temperature float64

	// Rainfall in millimetres (>= 0).
	Rainfall float64

	// Humidity percentage (0-100); nil when the provider did not report it.
	Humidity *float64

	Condition string
	Icon      string
}

// Drainage is the soil drainage class.
type Drainage string

const (
	DrainageUnset    Drainage = ""
	DrainagePoor     Drainage = "poor"
	DrainageModerate Drainage = "moderate"
	DrainageGood     Drainage = "good"
)

// ParseDrainage maps free-form input to a drainage class. Unknown values are unset.
func ParseDrainage(s string) Drainage {
	switch Drainage(strings.ToLower(strings.TrimSpace(s))) {
	case DrainagePoor:
		return DrainagePoor
	case DrainageModerate:
		return DrainageModerate
	case DrainageGood:
		return DrainageGood
	default:
		return DrainageUnset
	}
}

// SoilProfile describes the field's soil as entered by the farmer.
type SoilProfile struct {
	Type             string
	PH               *float64
	OrganicMatterPct *float64
	Drainage         Drainage
}

// ParseSoilProfile builds a SoilProfile from raw form values. Numeric fields that
// do not parse are left unset. Returns nil when every field is empty.
func ParseSoilProfile(soilType, ph, organicMatterPct, drainage string) *SoilProfile {
	soil := &SoilProfile{
		Type:             strings.TrimSpace(soilType),
		PH:               parseOptionalFloat(ph),
		OrganicMatterPct: parseOptionalFloat(organicMatterPct),
		Drainage:         ParseDrainage(drainage),
	}
	if soil.Type == "" && soil.PH == nil && soil.OrganicMatterPct == nil && soil.Drainage == DrainageUnset {
		return nil
	}
	return soil
}

// Action is an irrigation decision for a schedule window.
type Action string

const (
	ActionIrrigate Action = "Irrigate"
	ActionSkip     Action = "Skip"
)

// ParseAction maps an upstream action string to an Action. Anything that is not
// "irrigate" is treated as a skip.
func ParseAction(s string) Action {
	if strings.EqualFold(strings.TrimSpace(s), string(ActionIrrigate)) {
		return ActionIrrigate
	}
	return ActionSkip
}

// IrrigationWeekEntry is one window of an irrigation plan.
type IrrigationWeekEntry struct {
	// Week is the display label: "Week 3-4" or, once a sowing date is known,
	// a calendar range such as "Jun 15 – Jun 28".
	Week string

	// StartWeek and EndWeek are the 1-based week range parsed from the upstream
	// label. Both are zero when the label is not a "Week N-M" range.
	StartWeek int
	EndWeek   int

	Action Action

	// Amount in millimetres. Set if and only if Action is ActionIrrigate.
	Amount *float64

	Reason string

	// Volume is the per-area water volume for Amount, when Amount is positive.
	Volume *UnitVolume
}

// NewIrrigationWeekEntry normalizes a raw upstream entry. An irrigate entry whose
// amount does not parse gets a zero amount; a skip entry never carries one.
func NewIrrigationWeekEntry(week, action, amount, reason string) IrrigationWeekEntry {
	entry := IrrigationWeekEntry{
		Week:   week,
		Action: ParseAction(action),
		Reason: reason,
	}
	if start, end, ok := parseWeekRange(week); ok {
		entry.StartWeek = start
		entry.EndWeek = end
	}
	if entry.Action == ActionIrrigate {
		mm := 0.0
		if v := parseOptionalFloat(amount); v != nil {
			mm = *v
		}
		entry.Amount = &mm
	}
	return entry
}

// RiskAssessment is a 0-100 crop stress score with the factors that produced it.
type RiskAssessment struct {
	Level  int
	Reason string
}

// RiskBucket returns the coarse label used in prediction history.
func (r RiskAssessment) RiskBucket() string {
	return RiskBucket(r.Level)
}

// RiskBucket maps a risk level to "low", "moderate" or "high".
func RiskBucket(level int) string {
	switch {
	case level > 70:
		return "high"
	case level > 40:
		return "moderate"
	default:
		return "low"
	}
}

// WaterUsage compares the planned irrigation against the conventional baseline.
type WaterUsage struct {
	UsedMm         int
	BaselineMm     int
	PctOfBaseline  int
	PlannedTotalMm float64
}

// UnitVolume is a water depth expressed as volume per unit area.
type UnitVolume struct {
	LitersPerHectare int64
	LitersPerAcre    int64
}

// CurrentWeather is the snapshot shown at the top of the dashboard.
type CurrentWeather struct {
	Temperature float64
	Humidity    float64
	Conditions  string
}

// TrendPoint is one day of the 30-day weather trend.
type TrendPoint struct {
	Day         string
	Rainfall    float64
	Temperature float64
}

// YieldPrediction is the model's yield estimate in tonnes per hectare.
type YieldPrediction struct {
	Value        float64
	Confidence   int
	VsHistorical int
	CILower      *float64
	CIUpper      *float64
}

// FeatureImpact is a model feature weight, as a display percentage.
type FeatureImpact struct {
	Name   string
	Impact int
}

// Notice is a non-fatal problem encountered while generating a forecast.
type Notice struct {
	Source  string
	Message string
}

// WeatherSnapshot is the weather portion of a result, as stored in history.
type WeatherSnapshot struct {
	Current CurrentWeather
	Trend   []TrendPoint
	Weekly  []WeatherSample
}

// Result is one generated forecast. It is never mutated after Generate returns it.
type Result struct {
	Generation uint64

	District   string
	Crop       string
	Season     string
	Scenario   string
	SowingDate *time.Time

	CurrentWeather    CurrentWeather
	WeatherTrend      []TrendPoint
	WeeklyForecast    []WeatherSample
	Yield             YieldPrediction
	FeatureImportance []FeatureImpact
	Explanation       string

	Risk               RiskAssessment
	IrrigationSchedule []IrrigationWeekEntry
	WaterSavings       int
	WaterUsage         WaterUsage

	Notices     []Notice
	GeneratedAt time.Time
}

// Weather returns the weather snapshot of the result.
func (r *Result) Weather() WeatherSnapshot {
	return WeatherSnapshot{
		Current: r.CurrentWeather,
		Trend:   r.WeatherTrend,
		Weekly:  r.WeeklyForecast,
	}
}

// ValidationError reports missing or invalid forecast request fields.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
