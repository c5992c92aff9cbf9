package handler

import (
	"net/http"

	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/api/response"
	"github.com/harvestiq/harvestiq/internal/forecast"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	catalog models.Catalog
}

// NewMetadataHandler creates a new MetadataHandler serving the static catalog.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{catalog: toAPICatalog(forecast.DefaultCatalog())}
}

// GetCatalog handles GET /v1/metadata/catalog - districts, crops, seasons and
// the other choices a forecast request may use.
func (h *MetadataHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	response.JSON(w, r, http.StatusOK, h.catalog)
}

func toAPICatalog(c forecast.Catalog) models.Catalog {
	out := models.Catalog{
		Districts: make([]models.District, 0, len(c.Districts)),
		Crops:     make([]models.CropOption, 0, len(c.Crops)),
		Seasons:   make([]models.Option, 0, len(c.Seasons)),
		SoilTypes: toAPIOptions(c.SoilTypes),
		Drainage:  toAPIOptions(c.Drainage),
		Scenarios: toAPIOptions(c.Scenarios),
		Languages: toAPIOptions(c.Languages),
	}
	for _, d := range c.Districts {
		out.Districts = append(out.Districts, models.District{ID: d.ID, Name: d.Name, Lat: d.Lat, Lon: d.Lon})
	}
	for _, cr := range c.Crops {
		out.Crops = append(out.Crops, models.CropOption{ID: cr.ID, Name: cr.Name, Season: cr.Season})
	}
	for _, s := range c.Seasons {
		out.Seasons = append(out.Seasons, models.Option{ID: s.ID, Label: s.Label})
	}
	return out
}

func toAPIOptions(opts []forecast.Option) []models.Option {
	out := make([]models.Option, 0, len(opts))
	for _, o := range opts {
		out = append(out, models.Option{ID: o.ID, Label: o.Label})
	}
	return out
}
