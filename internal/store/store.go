package store

import (
	"context"
	"errors"

	"github.com/joescharf/prd/internal/models"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("review not found")

// ErrExists is returned when creating a session whose id is already taken.
var ErrExists = errors.New("review already exists")

// Store is the keyed persistence interface for review sessions. Reads
// return snapshots; writes to one session are funneled through Mutate so
// a single owner can advance it without racing pollers.
type Store interface {
	CreateReview(ctx context.Context, s *models.ReviewSession) error
	GetReview(ctx context.Context, id string) (*models.ReviewSession, error)
	ListReviews(ctx context.Context) ([]*models.ReviewSession, error)
	MutateReview(ctx context.Context, id string, fn func(*models.ReviewSession)) error
	DeleteReview(ctx context.Context, id string) error
	Close() error
}
