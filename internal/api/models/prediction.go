package models

import "encoding/json"

// Prediction is a saved forecast in the user's history.
type Prediction struct {
	ID                 string          `json:"id"`
	District           string          `json:"district"`
	Crop               string          `json:"crop"`
	Season             string          `json:"season"`
	Scenario           string          `json:"scenario"`
	YieldPrediction    float64         `json:"yieldPrediction"`
	ConfidenceScore    int             `json:"confidenceScore"`
	RiskLevel          string          `json:"riskLevel"`
	IrrigationSchedule json.RawMessage `json:"irrigationSchedule"`
	WeatherData        json.RawMessage `json:"weatherData"`
	CreatedAt          Timestamp       `json:"createdAt"`
}

// PagedPredictions represents a paginated list of predictions.
type PagedPredictions struct {
	Items []Prediction      `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// SavePredictionRequest is the optional body of POST /v1/me/predictions.
// When Generation is set, the save fails if the session has moved on to a
// newer forecast.
type SavePredictionRequest struct {
	Generation *uint64 `json:"generation,omitempty"`
}
