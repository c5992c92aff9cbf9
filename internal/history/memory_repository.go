package history

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository, used in
// tests and when no database is configured.
type InMemoryRepository struct {
	mu          sync.RWMutex
	predictions map[string]*Prediction
}

// NewInMemoryRepository creates a new in-memory prediction repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		predictions: make(map[string]*Prediction),
	}
}

// Create stores a new prediction.
func (r *InMemoryRepository) Create(_ context.Context, p *Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *p
	r.predictions[p.ID] = &cpy
	return nil
}

// GetByUserAndID retrieves a prediction by user ID and prediction ID.
func (r *InMemoryRepository) GetByUserAndID(_ context.Context, userID, predictionID string) (*Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.predictions[predictionID]
	if !ok || p.UserID != userID {
		return nil, ErrPredictionNotFound
	}

	cpy := *p
	return &cpy, nil
}

// List retrieves a user's predictions, newest first.
func (r *InMemoryRepository) List(_ context.Context, userID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	var items []*Prediction
	for _, p := range r.predictions {
		if p.UserID == userID {
			cpy := *p
			items = append(items, &cpy)
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if opts.Cursor != "" {
		for i, p := range items {
			if p.ID == opts.Cursor {
				items = items[i+1:]
				break
			}
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].ID
	}

	return result, nil
}

// Delete deletes a prediction by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.predictions, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
