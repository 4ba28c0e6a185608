package repository

import (
	"context"

	"carpool/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking. Returns ErrDuplicate if the
	// passenger already holds an active (non-cancelled) booking on the
	// same ride.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetActiveByRideAndPassenger retrieves the passenger's pending or
	// confirmed booking on the ride, if any.
	GetActiveByRideAndPassenger(ctx context.Context, rideID, passengerID string) (*domain.Booking, error)

	// GetCompletedByRideAndPassenger retrieves the passenger's completed
	// booking on the ride, if any.
	GetCompletedByRideAndPassenger(ctx context.Context, rideID, passengerID string) (*domain.Booking, error)

	// ListByPassenger retrieves a passenger's bookings, newest first.
	ListByPassenger(ctx context.Context, passengerID string) ([]*domain.Booking, error)

	// ListByRide retrieves all bookings on a ride, newest first.
	ListByRide(ctx context.Context, rideID string) ([]*domain.Booking, error)

	// Transition moves the booking to status to iff its current status
	// is one of the allowed ones. Returns ErrNotFound if the booking
	// does not exist, ErrConflict if the guard failed.
	Transition(ctx context.Context, id string, to domain.BookingStatus, allowedFrom ...domain.BookingStatus) error

	// UpdatePaymentStatus sets the booking's payment flag.
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error

	// CancelActiveByRide force-cancels every pending or confirmed
	// booking on the ride in one bulk transition, returning the affected
	// bookings. The capacity ledger is not touched; trip-level
	// cancellation makes the ride's seat accounting irrelevant.
	CancelActiveByRide(ctx context.Context, rideID string) ([]*domain.Booking, error)

	// CountActiveByRide counts pending and confirmed bookings on a ride.
	CountActiveByRide(ctx context.Context, rideID string) (int, error)
}
