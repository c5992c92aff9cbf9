// Package history stores the forecasts users choose to keep. Records are
// append-only: they can be listed and deleted, never updated.
package history

import (
	"encoding/json"
	"errors"
	"time"
)

// Repository errors.
var (
	ErrPredictionNotFound = errors.New("prediction not found")
)

// Prediction is a saved forecast.
type Prediction struct {
	ID       string
	UserID   string
	District string
	Crop     string
	Season   string
	Scenario string

	// YieldPrediction is the yield in t/ha, rounded to two decimals.
	YieldPrediction float64
	ConfidenceScore int

	// RiskLevel is "low", "moderate" or "high".
	RiskLevel string

	// IrrigationSchedule and WeatherData are the JSON documents shown when the
	// prediction is reopened.
	IrrigationSchedule json.RawMessage
	WeatherData        json.RawMessage

	CreatedAt time.Time
}
