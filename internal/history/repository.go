package history

import "context"

// ListOptions contains options for listing predictions.
type ListOptions struct {
	Limit int

	// Cursor is the ID of the last prediction of the previous page.
	Cursor string
}

// ListResult contains the results of listing predictions, newest first.
type ListResult struct {
	Items      []*Prediction
	NextCursor string
}

// Repository defines the interface for prediction persistence.
type Repository interface {
	// Create stores a new prediction.
	Create(ctx context.Context, p *Prediction) error

	// GetByUserAndID retrieves a prediction by user ID and prediction ID.
	// Returns ErrPredictionNotFound if it doesn't exist or belongs to another user.
	GetByUserAndID(ctx context.Context, userID, predictionID string) (*Prediction, error)

	// List retrieves a user's predictions, newest first.
	List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error)

	// Delete deletes a prediction by ID.
	Delete(ctx context.Context, id string) error
}
