package service

import (
	"context"
	"errors"
	"log"

	"carpool/internal/domain"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
)

// CapacityLedger owns all mutations of a ride's available seat count.
// Every change is a delta applied inside the ride's critical section;
// nothing outside this type writes seat counts, and no caller can set an
// absolute value.
//
// The repository's conditional update is itself atomic, so even a caller
// that bypassed the ledger could not overcommit; the critical section is
// what lets booking creation run its duplicate check and persistence
// against a seat count that cannot move underneath it.
type CapacityLedger struct {
	rides repository.RideRepository
	cache *internalRedis.CacheStore
	locks *KeyedMutex
}

// NewCapacityLedger creates a new CapacityLedger.
// cache may be nil; when present, the cached ride is invalidated after
// every seat mutation.
func NewCapacityLedger(rides repository.RideRepository, cache *internalRedis.CacheStore) *CapacityLedger {
	return &CapacityLedger{
		rides: rides,
		cache: cache,
		locks: NewKeyedMutex(),
	}
}

// Reserve atomically decrements the ride's available seats by seats.
// It fails with ErrCapacityExceeded if fewer seats remain and with
// ErrRideUnavailable if the ride is not active; the check and the
// decrement are indivisible with respect to every other reserve/release
// on the same ride.
//
// When within is non-nil it runs inside the same critical section after
// the decrement has succeeded; if it returns an error the reservation is
// rolled back before Reserve returns. Booking creation passes its
// duplicate check and persistence here so that reservation and
// persistence succeed or fail as one.
func (l *CapacityLedger) Reserve(ctx context.Context, rideID string, seats int, within func(context.Context) error) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if seats < domain.MinSeats || seats > domain.MaxSeats {
		return ErrInvalidSeatCount
	}

	unlock := l.locks.Lock(rideID)
	defer unlock()

	if err := l.rides.ReserveSeats(ctx, rideID, seats); err != nil {
		return mapCapacityError(err)
	}

	if within != nil {
		if err := within(ctx); err != nil {
			if relErr := l.rides.ReleaseSeats(ctx, rideID, seats); relErr != nil {
				// The reservation is now orphaned; the clamp on release
				// keeps a later manual correction safe.
				log.Printf("capacity: failed to roll back %d seat(s) on ride %s: %v", seats, rideID, relErr)
			}
			l.invalidate(ctx, rideID)
			return err
		}
	}

	l.invalidate(ctx, rideID)
	return nil
}

// WithRideLock runs fn inside the ride's critical section without
// mutating the seat count itself. Ride edits that must not interleave
// with a reservation on the same ride, such as a total-seats change
// that resets availability, run here.
func (l *CapacityLedger) WithRideLock(ctx context.Context, rideID string, fn func(context.Context) error) error {
	if rideID == "" {
		return ErrInvalidRideID
	}

	unlock := l.locks.Lock(rideID)
	defer unlock()

	return fn(ctx)
}

// Release atomically increments the ride's available seats by seats,
// clamped so the count never exceeds the ride's total.
func (l *CapacityLedger) Release(ctx context.Context, rideID string, seats int) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if seats < domain.MinSeats || seats > domain.MaxSeats {
		return ErrInvalidSeatCount
	}

	unlock := l.locks.Lock(rideID)
	defer unlock()

	if err := l.rides.ReleaseSeats(ctx, rideID, seats); err != nil {
		return err
	}

	l.invalidate(ctx, rideID)
	return nil
}

func (l *CapacityLedger) invalidate(ctx context.Context, rideID string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.InvalidateRide(ctx, rideID); err != nil {
		log.Printf("capacity: failed to invalidate ride %s cache: %v", rideID, err)
	}
}

func mapCapacityError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientSeats):
		return ErrCapacityExceeded
	case errors.Is(err, repository.ErrRideNotActive):
		return ErrRideUnavailable
	default:
		return err
	}
}
