package forecast

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/mlservice"
	"github.com/harvestiq/harvestiq/internal/weather"
)

// Notice sources.
const (
	SourceWeather    = "weather"
	SourceYieldModel = "yield-model"
	SourceIrrigation = "irrigation-model"
)

const (
	defaultForecastDays = 7
	defaultConfidence   = 75
	minConfidence       = 50
	maxConfidence       = 95
	sowingDateLayout    = "2006-01-02"
)

// WeatherSource fetches daily forecasts.
type WeatherSource interface {
	GetForecast(ctx context.Context, location string, days int) (*weather.Forecast, error)
}

// Predictor is the yield model and irrigation planner.
type Predictor interface {
	Predict(ctx context.Context, req mlservice.PredictRequest) (*mlservice.PredictResponse, error)
	Irrigation(ctx context.Context, req mlservice.IrrigationRequest) (*mlservice.IrrigationResponse, error)
}

// Request is a forecast generation request.
type Request struct {
	District   string
	Crop       string
	Season     string
	Scenario   string
	SowingDate *time.Time
	Soil       *SoilProfile
	Locale     string
}

// Validate checks the fields required before any upstream call is made.
func (r Request) Validate() error {
	var errs []models.FieldError
	if strings.TrimSpace(r.District) == "" {
		errs = append(errs, models.FieldError{Field: "district", Message: "district is required"})
	}
	if strings.TrimSpace(r.Crop) == "" {
		errs = append(errs, models.FieldError{Field: "crop", Message: "crop is required"})
	}
	if strings.TrimSpace(r.Season) == "" {
		errs = append(errs, models.FieldError{Field: "season", Message: "season is required"})
	}
	if r.SowingDate == nil {
		errs = append(errs, models.FieldError{Field: "sowingDate", Message: "sowing date is required"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ServiceConfig holds configuration for the forecast service.
type ServiceConfig struct {
	Weather   WeatherSource
	Predictor Predictor
	Logger    zerolog.Logger

	// ForecastDays is the weekly horizon requested from the weather provider (default: 7).
	ForecastDays int

	// Now returns the evaluation time (default: time.Now).
	Now func() time.Time
}

// Service generates forecasts.
type Service struct {
	weather      WeatherSource
	predictor    Predictor
	logger       zerolog.Logger
	forecastDays int
	now          func() time.Time
}

// NewService creates a new forecast service.
func NewService(cfg ServiceConfig) *Service {
	days := cfg.ForecastDays
	if days == 0 {
		days = defaultForecastDays
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		weather:      cfg.Weather,
		predictor:    cfg.Predictor,
		logger:       cfg.Logger,
		forecastDays: days,
		now:          now,
	}
}

// Generate runs weather, yield prediction and irrigation planning for the
// request, assembles the result and commits it to the session. Upstream
// failures degrade the result and add a notice; they are never returned.
// Returns a *ValidationError for incomplete requests and ErrStaleGeneration if
// a newer request for the same session started meanwhile.
func (s *Service) Generate(ctx context.Context, session *Session, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gen := session.Begin()
	result := s.build(ctx, req)

	if err := session.Commit(gen, result); err != nil {
		s.logger.Info().
			Uint64("generation", gen).
			Str("district", req.District).
			Msg("discarding superseded forecast")
		return nil, err
	}
	return result, nil
}

func (s *Service) build(ctx context.Context, req Request) *Result {
	now := s.now()
	crop := cropKey(req.Crop)
	scenario := NormalizeScenario(req.Scenario)
	profile := referenceFor(scenario, crop)
	sowing := req.SowingDate.Format(sowingDateLayout)

	result := &Result{
		District:    req.District,
		Crop:        req.Crop,
		Season:      req.Season,
		Scenario:    scenario,
		SowingDate:  req.SowingDate,
		GeneratedAt: now,
	}

	// One weather series feeds display, the models and the risk score.
	fc, err := s.weather.GetForecast(ctx, weatherLocation(req.District), s.forecastDays)
	if err != nil {
		s.logger.Warn().Err(err).Str("district", req.District).Msg("weather unavailable, continuing without forecast")
		result.addNotice(SourceWeather, "Weather forecast unavailable; risk uses default values.")
		fc = nil
	}
	result.WeeklyForecast = WeeklySamples(fc)
	result.CurrentWeather = currentWeather(fc, profile)
	result.WeatherTrend = WeatherTrend(req.District, crop, scenario)

	temps, ok := fc.Temperatures()
	if !ok {
		temps = weather.TemperatureSummary{Avg: profile.temps.avg, Max: profile.temps.max, Min: profile.temps.min}
	}

	var cropCycle []byte
	prediction, err := s.predictor.Predict(ctx, mlservice.PredictRequest{
		CropType:   crop,
		AvgTemp:    round1(temps.Avg),
		TMax:       round1(temps.Max),
		TMin:       round1(temps.Min),
		SowingDate: sowing,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("crop", crop).Msg("yield prediction unavailable, using reference values")
		result.addNotice(SourceYieldModel, "Yield model unavailable; showing reference values for this crop.")
		result.Yield = YieldPrediction{
			Value:        profile.yield,
			Confidence:   profile.confidence,
			VsHistorical: profile.vsHistorical,
		}
		result.FeatureImportance = profile.featureImportance()
		result.Explanation = profile.explanation
	} else {
		result.Yield = yieldFromPrediction(crop, prediction.Prediction)
		result.FeatureImportance = featureImpacts(prediction.FeatureImportances)
		result.Explanation = prediction.ExplanationText
		cropCycle = prediction.CropCycle
	}

	var schedule []IrrigationWeekEntry
	plan, err := s.predictor.Irrigation(ctx, mlservice.IrrigationRequest{
		CropType:       crop,
		SowingDate:     sowing,
		WeeklyForecast: weeklyForecastDays(result.WeeklyForecast),
		CropCycle:      cropCycle,
		SoilProfile:    soilForPlanner(req.Soil),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("crop", crop).Msg("irrigation plan unavailable, using reference schedule")
		result.addNotice(SourceIrrigation, "Irrigation planner unavailable; showing a reference schedule.")
		schedule = profile.irrigationSchedule()
		result.WaterSavings = profile.waterSavings
	} else {
		schedule = make([]IrrigationWeekEntry, 0, len(plan.Schedule))
		for _, e := range plan.Schedule {
			schedule = append(schedule, NewIrrigationWeekEntry(e.Week, e.Action, string(e.Amount), e.Reason))
		}
		result.WaterSavings = int(roundHalfUp(plan.WaterSavings))
	}

	schedule = AttachVolumes(ResolveScheduleDates(schedule, req.SowingDate, req.Locale))
	result.IrrigationSchedule = schedule
	result.WaterUsage = SummarizeWaterUsage(schedule, float64(result.WaterSavings))
	result.Risk = ComputeRisk(result.WeeklyForecast, req.Soil, req.Crop, req.SowingDate, now)

	return result
}

func (r *Result) addNotice(source, message string) {
	r.Notices = append(r.Notices, Notice{Source: source, Message: message})
}

// WeeklySamples converts a provider forecast into assembler samples. A nil
// forecast yields an empty, non-nil series.
func WeeklySamples(fc *weather.Forecast) []WeatherSample {
	if fc == nil {
		return []WeatherSample{}
	}
	samples := make([]WeatherSample, 0, len(fc.Days))
	for _, d := range fc.Days {
		var humidity *float64
		if d.AvgHumidity != nil {
			h := *d.AvgHumidity
			humidity = &h
		}
		samples = append(samples, WeatherSample{
			Day:         d.Date.Format(sowingDateLayout),
			Temperature: d.AvgTemp,
			Rainfall:    math.Max(0, d.TotalPrecipMm),
			Humidity:    humidity,
			Condition:   d.Condition,
			Icon:        d.Icon,
		})
	}
	return samples
}

func currentWeather(fc *weather.Forecast, profile referenceProfile) CurrentWeather {
	switch {
	case fc != nil && fc.Current != nil:
		return CurrentWeather{
			Temperature: fc.Current.Temperature,
			Humidity:    fc.Current.Humidity,
			Conditions:  fc.Current.Condition,
		}
	case fc != nil && len(fc.Days) > 0:
		d := fc.Days[0]
		cw := CurrentWeather{Temperature: d.AvgTemp, Conditions: d.Condition}
		if d.AvgHumidity != nil {
			cw.Humidity = *d.AvgHumidity
		}
		return cw
	default:
		return profile.current
	}
}

func yieldFromPrediction(crop string, p mlservice.Prediction) YieldPrediction {
	y := YieldPrediction{
		Value:      p.YieldTHa,
		Confidence: defaultConfidence,
		CILower:    p.CILower,
		CIUpper:    p.CIUpper,
	}
	if p.CILower != nil && p.CIUpper != nil && p.YieldTHa > 0 {
		width := (*p.CIUpper - *p.CILower) / p.YieldTHa * 100
		c := roundHalfUp(100 - width)
		y.Confidence = int(math.Max(minConfidence, math.Min(maxConfidence, c)))
	}
	if baseline, ok := HistoricalYield(crop); ok && baseline > 0 {
		y.VsHistorical = int(roundHalfUp((p.YieldTHa - baseline) / baseline * 100))
	}
	return y
}

func featureImpacts(in []mlservice.FeatureImportance) []FeatureImpact {
	out := make([]FeatureImpact, 0, len(in))
	for _, f := range in {
		out = append(out, FeatureImpact{Name: f.Name, Impact: int(roundHalfUp(f.Impact * 100))})
	}
	return out
}

func weeklyForecastDays(samples []WeatherSample) []mlservice.WeeklyForecastDay {
	out := make([]mlservice.WeeklyForecastDay, 0, len(samples))
	for _, s := range samples {
		out = append(out, mlservice.WeeklyForecastDay{Day: s.Day, Temp: s.Temperature, Rain: s.Rainfall})
	}
	return out
}

func soilForPlanner(soil *SoilProfile) *mlservice.SoilProfile {
	if soil == nil {
		return nil
	}
	return &mlservice.SoilProfile{
		Type:             soil.Type,
		PH:               soil.PH,
		OrganicMatterPct: soil.OrganicMatterPct,
		Drainage:         string(soil.Drainage),
	}
}

// cropKey maps a crop name or id to the id the models expect.
func cropKey(crop string) string {
	if c, ok := LookupCrop(crop); ok {
		return c.ID
	}
	return strings.ToLower(strings.TrimSpace(crop))
}

// weatherLocation prefers the catalog's full place name for known districts.
func weatherLocation(district string) string {
	if d, ok := LookupDistrict(district); ok {
		return d.Name
	}
	return strings.TrimSpace(district)
}
