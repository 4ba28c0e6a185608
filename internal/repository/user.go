package repository

import (
	"context"

	"carpool/internal/domain"
)

// UserRepository defines the persistence operations for users.
type UserRepository interface {
	// Create persists a new user. Returns ErrDuplicate if the email is
	// already registered.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// AbsorbRating folds one new rating into the user's running mean and
	// count: mean <- (mean*count + rating) / (count + 1). The update is
	// atomic with respect to concurrent AbsorbRating calls for the same
	// user.
	AbsorbRating(ctx context.Context, userID string, rating int) error
}
