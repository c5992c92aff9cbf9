package weather

import (
	"errors"
	"strings"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrInvalidLocation     = errors.New("invalid location")
	ErrInvalidDays         = errors.New("forecast days out of range")
)

// Forecast day limits accepted by the service.
const (
	MinForecastDays = 1
	MaxForecastDays = 14
)

// Current is the latest observed weather at a location.
type Current struct {
	// Temperature in Celsius
	Temperature float64

	// Humidity percentage (0-100)
	Humidity float64

	Condition string
	Icon      string

	ObservedAt time.Time
}

// DailyForecast is the provider's aggregate for one calendar day.
type DailyForecast struct {
	Date time.Time

	// Temperatures in Celsius
	AvgTemp float64
	MaxTemp float64
	MinTemp float64

	// TotalPrecipMm is the day's total precipitation in millimetres.
	TotalPrecipMm float64

	// AvgHumidity is nil when the provider omitted it.
	AvgHumidity *float64

	Condition string
	Icon      string
}

// Forecast is a daily forecast for a named location.
type Forecast struct {
	// Location is the query the forecast was requested for.
	Location string

	// ResolvedName is the provider's name for the matched place, e.g. "Pune, Maharashtra".
	ResolvedName string

	Lat float64
	Lon float64

	// Current is nil when the provider returned no current conditions.
	Current *Current

	Days []DailyForecast

	FetchedAt time.Time
}

// TemperatureSummary is the span of a forecast's daily temperatures.
type TemperatureSummary struct {
	Avg float64
	Max float64
	Min float64
}

// Temperatures returns the mean of the daily averages, the highest daily maximum
// and the lowest daily minimum. ok is false when the forecast has no days.
func (f *Forecast) Temperatures() (TemperatureSummary, bool) {
	if f == nil || len(f.Days) == 0 {
		return TemperatureSummary{}, false
	}
	s := TemperatureSummary{Max: f.Days[0].MaxTemp, Min: f.Days[0].MinTemp}
	var sum float64
	for _, d := range f.Days {
		sum += d.AvgTemp
		if d.MaxTemp > s.Max {
			s.Max = d.MaxTemp
		}
		if d.MinTemp < s.Min {
			s.Min = d.MinTemp
		}
	}
	s.Avg = sum / float64(len(f.Days))
	return s, true
}

// TotalPrecipMm sums precipitation over every forecast day.
func (f *Forecast) TotalPrecipMm() float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, d := range f.Days {
		total += d.TotalPrecipMm
	}
	return total
}

// NormalizeLocation trims and lower-cases a location query and collapses
// internal whitespace, so "Pune,  Maharashtra" and "pune, maharashtra" share
// a cache entry.
func NormalizeLocation(location string) string {
	return strings.ToLower(strings.Join(strings.Fields(location), " "))
}
