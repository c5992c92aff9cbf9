package models

// SoilProfileInput is the optional soil description entered on the dashboard.
type SoilProfileInput struct {
	Type             string      `json:"type,omitempty"`
	PH               LooseNumber `json:"ph,omitempty"`
	OrganicMatterPct LooseNumber `json:"organicMatterPct,omitempty"`
	Drainage         string      `json:"drainage,omitempty"`
}

// ForecastRequest is the body of POST /v1/forecasts.
type ForecastRequest struct {
	District   string            `json:"district" validate:"max=120"`
	Crop       string            `json:"crop" validate:"max=60"`
	Season     string            `json:"season" validate:"max=60"`
	Scenario   string            `json:"scenario,omitempty" validate:"max=20"`
	SowingDate string            `json:"sowingDate" validate:"omitempty,datetime=2006-01-02"`
	Soil       *SoilProfileInput `json:"soil,omitempty"`
	Locale     string            `json:"locale,omitempty" validate:"max=16"`
}

// CurrentWeather is the weather right now at the district.
type CurrentWeather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Conditions  string  `json:"conditions"`
}

// TrendPoint is one day of the 30-day outlook chart.
type TrendPoint struct {
	Day         string  `json:"day"`
	Rainfall    float64 `json:"rainfall"`
	Temperature float64 `json:"temperature"`
}

// WeatherSample is one day of the weekly forecast.
type WeatherSample struct {
	Day         string   `json:"day"`
	Temperature float64  `json:"temperature"`
	Rainfall    float64  `json:"rainfall"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Icon        string   `json:"icon,omitempty"`
}

// WeatherSnapshot is the weather block of a forecast and of saved predictions.
type WeatherSnapshot struct {
	Current CurrentWeather  `json:"current"`
	Trend   []TrendPoint    `json:"trend"`
	Weekly  []WeatherSample `json:"weekly"`
}

// YieldPrediction is the model's yield estimate.
type YieldPrediction struct {
	Value        float64  `json:"value"`
	Unit         string   `json:"unit"`
	Confidence   int      `json:"confidence"`
	VsHistorical int      `json:"vsHistorical"`
	CILower      *float64 `json:"ciLower,omitempty"`
	CIUpper      *float64 `json:"ciUpper,omitempty"`
}

// FeatureImpact is a feature's share of the prediction, in percent.
type FeatureImpact struct {
	Name   string `json:"name"`
	Impact int    `json:"impact"`
}

// Risk is the crop stress score.
type Risk struct {
	Level  int    `json:"level"`
	Bucket string `json:"bucket"`
	Reason string `json:"reason"`
}

// UnitVolume is a water depth expressed per area.
type UnitVolume struct {
	LitersPerHectare int64 `json:"litersPerHectare"`
	LitersPerAcre    int64 `json:"litersPerAcre"`
}

// IrrigationWeek is one window of the irrigation plan.
type IrrigationWeek struct {
	Week      string      `json:"week"`
	StartWeek int         `json:"startWeek,omitempty"`
	EndWeek   int         `json:"endWeek,omitempty"`
	Action    string      `json:"action"`
	Amount    *float64    `json:"amount,omitempty"`
	Reason    string      `json:"reason"`
	Volume    *UnitVolume `json:"volume,omitempty"`
}

// WaterUsage compares the plan to the conventional baseline.
type WaterUsage struct {
	UsedMm         int     `json:"usedMm"`
	BaselineMm     int     `json:"baselineMm"`
	PctOfBaseline  int     `json:"pctOfBaseline"`
	PlannedTotalMm float64 `json:"plannedTotalMm"`
}

// Notice reports an upstream that could not be reached and what was used instead.
type Notice struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Forecast is the response of POST /v1/forecasts.
type Forecast struct {
	Generation         uint64           `json:"generation"`
	District           string           `json:"district"`
	Crop               string           `json:"crop"`
	Season             string           `json:"season"`
	Scenario           string           `json:"scenario"`
	SowingDate         string           `json:"sowingDate,omitempty"`
	CurrentWeather     CurrentWeather   `json:"currentWeather"`
	WeatherTrend       []TrendPoint     `json:"weatherTrend"`
	WeeklyForecast     []WeatherSample  `json:"weeklyForecast"`
	YieldPrediction    YieldPrediction  `json:"yieldPrediction"`
	FeatureImportance  []FeatureImpact  `json:"featureImportance"`
	Explanation        string           `json:"explanation"`
	Risk               Risk             `json:"risk"`
	IrrigationSchedule []IrrigationWeek `json:"irrigationSchedule"`
	WaterSavings       int              `json:"waterSavings"`
	WaterUsage         WaterUsage       `json:"waterUsage"`
	Notices            []Notice         `json:"notices"`
	GeneratedAt        Timestamp        `json:"generatedAt"`
}

// RiskRequest is the body of POST /v1/forecasts/risk.
type RiskRequest struct {
	Weekly     []WeatherSample   `json:"weekly" validate:"max=14,dive"`
	Soil       *SoilProfileInput `json:"soil,omitempty"`
	Crop       string            `json:"crop"`
	SowingDate string            `json:"sowingDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// IrrigationEntryInput is a raw irrigation entry as returned by the planner.
// Amount may be a number or a string.
type IrrigationEntryInput struct {
	Week   string      `json:"week"`
	Action string      `json:"action"`
	Amount LooseNumber `json:"amount,omitempty"`
	Reason string      `json:"reason"`
}

// ResolveScheduleRequest is the body of POST /v1/irrigation/resolve.
type ResolveScheduleRequest struct {
	Schedule   []IrrigationEntryInput `json:"schedule" validate:"max=52"`
	SowingDate string                 `json:"sowingDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Locale     string                 `json:"locale,omitempty" validate:"max=16"`
}

// WaterUsageRequest is the body of POST /v1/irrigation/summary.
type WaterUsageRequest struct {
	Schedule        []IrrigationEntryInput `json:"schedule" validate:"max=52"`
	WaterSavingsPct float64                `json:"waterSavingsPct"`
}

// VolumeResponse is the response of GET /v1/irrigation/volume. Volume is null
// for depths that are zero, negative or not finite.
type VolumeResponse struct {
	AmountMm float64     `json:"amountMm"`
	Volume   *UnitVolume `json:"volume"`
}
