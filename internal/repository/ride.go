package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// RideFilter narrows a ride search. Zero values mean "any".
type RideFilter struct {
	DepartureCity   string
	DestinationCity string
	Date            time.Time // matches rides departing on this calendar day
	MinSeats        int
}

// RideRepository defines the persistence operations for rides.
//
// ReserveSeats and ReleaseSeats are the only operations that mutate a
// ride's available seat count; both apply deltas conditionally so that a
// caller can never overcommit or overflow capacity, whatever the
// interleaving.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// Search retrieves active rides matching the filter, soonest first.
	Search(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// GetByDriverID retrieves all rides published by a driver.
	GetByDriverID(ctx context.Context, driverID string) ([]*domain.Ride, error)

	// Update updates a ride's editable fields.
	Update(ctx context.Context, ride *domain.Ride) error

	// UpdateStatus transitions the ride's status iff its current status
	// is one of the allowed ones. Returns ErrNotFound if the ride does
	// not exist, ErrConflict if the guard failed.
	UpdateStatus(ctx context.Context, id string, to domain.RideStatus, allowedFrom ...domain.RideStatus) error

	// ReserveSeats decrements available seats by seats iff the ride is
	// active and has at least that many seats free; the check and the
	// decrement are one indivisible operation. Returns ErrNotFound,
	// ErrRideNotActive, or ErrInsufficientSeats on failure.
	ReserveSeats(ctx context.Context, id string, seats int) error

	// ReleaseSeats increments available seats by seats, clamped so the
	// count never exceeds the ride's total seats.
	ReleaseSeats(ctx context.Context, id string, seats int) error
}
