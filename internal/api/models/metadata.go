package models

// District is a selectable district with its map position.
type District struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// CropOption is a selectable crop.
type CropOption struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Season string `json:"season"`
}

// Option is a generic id/label choice.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Catalog is the response of GET /v1/metadata/catalog.
type Catalog struct {
	Districts []District   `json:"districts"`
	Crops     []CropOption `json:"crops"`
	Seasons   []Option     `json:"seasons"`
	SoilTypes []Option     `json:"soilTypes"`
	Drainage  []Option     `json:"drainage"`
	Scenarios []Option     `json:"scenarios"`
	Languages []Option     `json:"languages"`
}
