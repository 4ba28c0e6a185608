package repository

import (
	"context"

	"carpool/internal/domain"
)

// ReviewRepository defines the persistence operations for reviews.
type ReviewRepository interface {
	// Create persists a new review. Returns ErrDuplicate if the reviewer
	// already reviewed this ride.
	Create(ctx context.Context, review *domain.Review) error

	// GetByRideAndReviewer retrieves the reviewer's review for a ride.
	GetByRideAndReviewer(ctx context.Context, rideID, reviewerID string) (*domain.Review, error)

	// ListForReviewee retrieves reviews received by a user, newest first.
	ListForReviewee(ctx context.Context, revieweeID string) ([]*domain.Review, error)

	// ListByReviewer retrieves reviews written by a user, newest first.
	ListByReviewer(ctx context.Context, reviewerID string) ([]*domain.Review, error)

	// CategoryAverages computes the mean of each optional category score
	// across the reviews a user has received.
	CategoryAverages(ctx context.Context, revieweeID string) (*domain.CategoryAverages, error)

	// Delete removes a review. Used only to roll back a review whose
	// rating could not be folded into the reviewee's aggregate.
	Delete(ctx context.Context, id string) error
}
