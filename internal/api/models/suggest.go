package models

// CropSuggestionRequest is the body of POST /v1/suggestions/crops.
type CropSuggestionRequest struct {
	Soil     SoilProfileInput `json:"soil"`
	Location string           `json:"location,omitempty" validate:"max=120"`
	Crop     string           `json:"crop,omitempty" validate:"max=60"`
}

// CropSuggestion is the response of POST /v1/suggestions/crops.
type CropSuggestion struct {
	TopCrop   string   `json:"topCrop,omitempty"`
	Crops     []string `json:"crops"`
	Rationale string   `json:"rationale"`
	Source    string   `json:"source"`
}
