package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/forecast"
)

// Service errors.
var (
	ErrNoForecast = errors.New("no forecast to save")
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service provides prediction history operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new history service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Save stores a generated forecast in the user's history.
func (s *Service) Save(ctx context.Context, userID string, result *forecast.Result) (*models.Prediction, error) {
	if result == nil {
		return nil, ErrNoForecast
	}

	schedule, err := json.Marshal(forecast.ToAPISchedule(result.IrrigationSchedule))
	if err != nil {
		return nil, fmt.Errorf("encoding irrigation schedule: %w", err)
	}
	weather, err := json.Marshal(forecast.ToAPIWeather(result.Weather()))
	if err != nil {
		return nil, fmt.Errorf("encoding weather data: %w", err)
	}

	p := &Prediction{
		ID:                 "pred_" + uuid.New().String()[:22],
		UserID:             userID,
		District:           result.District,
		Crop:               result.Crop,
		Season:             result.Season,
		Scenario:           result.Scenario,
		YieldPrediction:    math.Round(result.Yield.Value*100) / 100,
		ConfidenceScore:    result.Yield.Confidence,
		RiskLevel:          result.Risk.RiskBucket(),
		IrrigationSchedule: schedule,
		WeatherData:        weather,
		CreatedAt:          s.now().UTC(),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	out := toAPIPrediction(p)
	return &out, nil
}

// List retrieves a page of the user's predictions, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int, cursor string) (*models.PagedPredictions, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	result, err := s.repo.List(ctx, userID, ListOptions{Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, err
	}

	items := make([]models.Prediction, 0, len(result.Items))
	for _, p := range result.Items {
		items = append(items, toAPIPrediction(p))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedPredictions{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Delete deletes a prediction owned by the user.
func (s *Service) Delete(ctx context.Context, userID, predictionID string) error {
	// Verify ownership
	if _, err := s.repo.GetByUserAndID(ctx, userID, predictionID); err != nil {
		return err
	}

	return s.repo.Delete(ctx, predictionID)
}

func toAPIPrediction(p *Prediction) models.Prediction {
	return models.Prediction{
		ID:                 p.ID,
		District:           p.District,
		Crop:               p.Crop,
		Season:             p.Season,
		Scenario:           p.Scenario,
		YieldPrediction:    p.YieldPrediction,
		ConfidenceScore:    p.ConfidenceScore,
		RiskLevel:          p.RiskLevel,
		IrrigationSchedule: p.IrrigationSchedule,
		WeatherData:        p.WeatherData,
		CreatedAt:          models.Timestamp(p.CreatedAt),
	}
}
