package forecast

import (
	"math"

	"github.com/harvestiq/harvestiq/internal/api/models"
)

// YieldUnit is the unit of YieldPrediction.Value.
const YieldUnit = "t/ha"

// ToAPIForecast converts a result to its API representation.
func ToAPIForecast(r *Result) models.Forecast {
	out := models.Forecast{
		Generation:         r.Generation,
		District:           r.District,
		Crop:               r.Crop,
		Season:             r.Season,
		Scenario:           r.Scenario,
		CurrentWeather:     toAPICurrent(r.CurrentWeather),
		WeatherTrend:       toAPITrend(r.WeatherTrend),
		WeeklyForecast:     ToAPIWeekly(r.WeeklyForecast),
		YieldPrediction:    toAPIYield(r.Yield),
		FeatureImportance:  make([]models.FeatureImpact, 0, len(r.FeatureImportance)),
		Explanation:        r.Explanation,
		Risk:               ToAPIRisk(r.Risk),
		IrrigationSchedule: ToAPISchedule(r.IrrigationSchedule),
		WaterSavings:       r.WaterSavings,
		WaterUsage:         ToAPIWaterUsage(r.WaterUsage),
		Notices:            make([]models.Notice, 0, len(r.Notices)),
		GeneratedAt:        models.Timestamp(r.GeneratedAt),
	}
	if r.SowingDate != nil {
		out.SowingDate = r.SowingDate.Format(sowingDateLayout)
	}
	for _, f := range r.FeatureImportance {
		out.FeatureImportance = append(out.FeatureImportance, models.FeatureImpact{Name: f.Name, Impact: f.Impact})
	}
	for _, n := range r.Notices {
		out.Notices = append(out.Notices, models.Notice{Source: n.Source, Message: n.Message})
	}
	return out
}

// ToAPIWeather converts a weather snapshot to its API representation.
func ToAPIWeather(w WeatherSnapshot) models.WeatherSnapshot {
	return models.WeatherSnapshot{
		Current: toAPICurrent(w.Current),
		Trend:   toAPITrend(w.Trend),
		Weekly:  ToAPIWeekly(w.Weekly),
	}
}

// ToAPIRisk converts a risk assessment to its API representation.
func ToAPIRisk(r RiskAssessment) models.Risk {
	return models.Risk{Level: r.Level, Bucket: r.RiskBucket(), Reason: r.Reason}
}

// ToAPIWaterUsage converts a water usage summary to its API representation.
func ToAPIWaterUsage(u WaterUsage) models.WaterUsage {
	return models.WaterUsage{
		UsedMm:         u.UsedMm,
		BaselineMm:     u.BaselineMm,
		PctOfBaseline:  u.PctOfBaseline,
		PlannedTotalMm: u.PlannedTotalMm,
	}
}

// ToAPIVolume converts a unit volume to its API representation. nil stays nil.
func ToAPIVolume(v *UnitVolume) *models.UnitVolume {
	if v == nil {
		return nil
	}
	return &models.UnitVolume{LitersPerHectare: v.LitersPerHectare, LitersPerAcre: v.LitersPerAcre}
}

// ToAPISchedule converts an irrigation schedule to its API representation.
func ToAPISchedule(schedule []IrrigationWeekEntry) []models.IrrigationWeek {
	out := make([]models.IrrigationWeek, 0, len(schedule))
	for _, e := range schedule {
		out = append(out, models.IrrigationWeek{
			Week:      e.Week,
			StartWeek: e.StartWeek,
			EndWeek:   e.EndWeek,
			Action:    string(e.Action),
			Amount:    e.Amount,
			Reason:    e.Reason,
			Volume:    ToAPIVolume(e.Volume),
		})
	}
	return out
}

// ToAPIWeekly converts weather samples to their API representation.
func ToAPIWeekly(samples []WeatherSample) []models.WeatherSample {
	out := make([]models.WeatherSample, 0, len(samples))
	for _, s := range samples {
		out = append(out, models.WeatherSample{
			Day:         s.Day,
			Temperature: s.Temperature,
			Rainfall:    s.Rainfall,
			Humidity:    s.Humidity,
			Condition:   s.Condition,
			Icon:        s.Icon,
		})
	}
	return out
}

// FromAPIWeekly converts API weather samples to assembler input. Negative or
// non-finite rainfall is treated as 0; non-finite temperatures as 0.
func FromAPIWeekly(in []models.WeatherSample) []WeatherSample {
	out := make([]WeatherSample, 0, len(in))
	for _, s := range in {
		sample := WeatherSample{
			Day:         s.Day,
			Temperature: finiteOrZero(s.Temperature),
			Rainfall:    math.Max(0, finiteOrZero(s.Rainfall)),
			Condition:   s.Condition,
			Icon:        s.Icon,
		}
		if s.Humidity != nil && !math.IsNaN(*s.Humidity) && !math.IsInf(*s.Humidity, 0) {
			h := *s.Humidity
			sample.Humidity = &h
		}
		out = append(out, sample)
	}
	return out
}

// FromAPISoil converts the optional soil form. Returns nil when nothing was entered.
func FromAPISoil(in *models.SoilProfileInput) *SoilProfile {
	if in == nil {
		return nil
	}
	return ParseSoilProfile(in.Type, string(in.PH), string(in.OrganicMatterPct), in.Drainage)
}

// FromAPISchedule normalizes raw irrigation entries.
func FromAPISchedule(in []models.IrrigationEntryInput) []IrrigationWeekEntry {
	out := make([]IrrigationWeekEntry, 0, len(in))
	for _, e := range in {
		out = append(out, NewIrrigationWeekEntry(e.Week, e.Action, string(e.Amount), e.Reason))
	}
	return out
}

func toAPICurrent(c CurrentWeather) models.CurrentWeather {
	return models.CurrentWeather{Temperature: c.Temperature, Humidity: c.Humidity, Conditions: c.Conditions}
}

func toAPITrend(points []TrendPoint) []models.TrendPoint {
	out := make([]models.TrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, models.TrendPoint{Day: p.Day, Rainfall: p.Rainfall, Temperature: p.Temperature})
	}
	return out
}

func toAPIYield(y YieldPrediction) models.YieldPrediction {
	return models.YieldPrediction{
		Value:        y.Value,
		Unit:         YieldUnit,
		Confidence:   y.Confidence,
		VsHistorical: y.VsHistorical,
		CILower:      y.CILower,
		CIUpper:      y.CIUpper,
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
