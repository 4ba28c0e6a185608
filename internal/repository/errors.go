package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint (one active booking per (ride, passenger), one review
	// per (ride, reviewer)).
	ErrDuplicate = errors.New("duplicate entity")

	// ErrConflict is returned when a conditional update matched no rows
	// because its state guard failed.
	ErrConflict = errors.New("conflicting state")

	// ErrInsufficientSeats is returned when a reservation asks for more
	// seats than the ride has available.
	ErrInsufficientSeats = errors.New("insufficient seats available")

	// ErrRideNotActive is returned when a reservation targets a ride
	// that is completed or cancelled.
	ErrRideNotActive = errors.New("ride not active")
)
