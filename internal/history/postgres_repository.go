package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the predictions table.
const Schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	district            TEXT NOT NULL,
	crop                TEXT NOT NULL,
	season              TEXT NOT NULL,
	scenario            TEXT NOT NULL,
	yield_prediction    DOUBLE PRECISION NOT NULL,
	confidence_score    INTEGER NOT NULL,
	risk_level          TEXT NOT NULL CHECK (risk_level IN ('low', 'moderate', 'high')),
	irrigation_schedule JSONB NOT NULL DEFAULT '[]',
	weather_data        JSONB NOT NULL DEFAULT '{}',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS predictions_user_created_idx ON predictions (user_id, created_at DESC, id DESC);
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL prediction repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the predictions table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("creating predictions schema: %w", err)
	}
	return nil
}

const selectColumns = `
	id, user_id, district, crop, season, scenario,
	yield_prediction, confidence_score, risk_level,
	irrigation_schedule, weather_data, created_at`

// Create stores a new prediction.
func (r *PostgresRepository) Create(ctx context.Context, p *Prediction) error {
	query := `
		INSERT INTO predictions (` + selectColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.District,
		p.Crop,
		p.Season,
		p.Scenario,
		p.YieldPrediction,
		p.ConfidenceScore,
		p.RiskLevel,
		[]byte(p.IrrigationSchedule),
		[]byte(p.WeatherData),
		p.CreatedAt,
	)
	return err
}

// GetByUserAndID retrieves a prediction by user ID and prediction ID.
func (r *PostgresRepository) GetByUserAndID(ctx context.Context, userID, predictionID string) (*Prediction, error) {
	query := `SELECT ` + selectColumns + ` FROM predictions WHERE id = $1 AND user_id = $2`

	p, err := scanPrediction(r.pool.QueryRow(ctx, query, predictionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return p, nil
}

// List retrieves a user's predictions, newest first. The cursor is the ID of
// the last row of the previous page.
func (r *PostgresRepository) List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	query := `
		SELECT ` + selectColumns + `
		FROM predictions
		WHERE user_id = $1
		  AND ($2 = '' OR (created_at, id) < (
		      SELECT created_at, id FROM predictions WHERE id = $2 AND user_id = $1))
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, opts.Cursor, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].ID
	}

	return result, nil
}

// Delete deletes a prediction by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM predictions WHERE id = $1`, id)
	return err
}

func scanPrediction(row pgx.Row) (*Prediction, error) {
	var (
		p        Prediction
		schedule []byte
		weather  []byte
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.District,
		&p.Crop,
		&p.Season,
		&p.Scenario,
		&p.YieldPrediction,
		&p.ConfidenceScore,
		&p.RiskLevel,
		&schedule,
		&weather,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.IrrigationSchedule = schedule
	p.WeatherData = weather
	return &p, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
