package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// 1. CAPACITY LEDGER
// ──────────────────────────────────────────────

func newActiveRide(id, driverID string, totalSeats int) *domain.Ride {
	return &domain.Ride{
		ID:              id,
		DriverID:        driverID,
		DepartureCity:   "Lyon",
		DestinationCity: "Paris",
		DepartureTime:   time.Now().Add(24 * time.Hour),
		PricePerSeat:    15,
		TotalSeats:      totalSeats,
		AvailableSeats:  totalSeats,
		Status:          domain.RideStatusActive,
		CreatedAt:       time.Now(),
	}
}

func TestCapacityLedger_Reserve_DecrementsSeats(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))

	ledger := service.NewCapacityLedger(rideRepo, nil)

	err := ledger.Reserve(context.Background(), "ride-1", 3, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 1 {
		t.Errorf("expected 1 available seat, got %d", got)
	}
}

func TestCapacityLedger_Reserve_InsufficientSeats_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 2))

	ledger := service.NewCapacityLedger(rideRepo, nil)

	err := ledger.Reserve(context.Background(), "ride-1", 3, func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, service.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got: %v", err)
	}

	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 2 {
		t.Errorf("expected seats untouched at 2, got %d", got)
	}
}

func TestCapacityLedger_Reserve_InactiveRide_Fails(t *testing.T) {
	t.Parallel()

	ride := newActiveRide("ride-1", "driver-1", 4)
	ride.Status = domain.RideStatusCancelled

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(ride)

	ledger := service.NewCapacityLedger(rideRepo, nil)

	err := ledger.Reserve(context.Background(), "ride-1", 1, func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, service.ErrRideUnavailable) {
		t.Fatalf("expected ErrRideUnavailable, got: %v", err)
	}
}

func TestCapacityLedger_Reserve_FailedBody_RollsBackSeats(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))

	ledger := service.NewCapacityLedger(rideRepo, nil)

	wantErr := errors.New("insert failed")
	err := ledger.Reserve(context.Background(), "ride-1", 2, func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected body error to propagate, got: %v", err)
	}

	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 4 {
		t.Errorf("expected reservation rolled back to 4 seats, got %d", got)
	}
}

func TestCapacityLedger_ConcurrentReserves_NeverOversell(t *testing.T) {
	t.Parallel()

	const totalSeats = 8
	const workers = 50

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", totalSeats))

	ledger := service.NewCapacityLedger(rideRepo, nil)

	var successes int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.Reserve(context.Background(), "ride-1", 1, func(ctx context.Context) error {
				return nil
			})
			if err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != totalSeats {
		t.Errorf("expected exactly %d successful reservations, got %d", totalSeats, successes)
	}

	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 0 {
		t.Errorf("expected 0 available seats, got %d", got)
	}
}

func TestCapacityLedger_LastSeat_ExactlyOneWinner(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newActiveRide("ride-1", "driver-1", 4)
	ride.AvailableSeats = 1
	rideRepo.AddRide(ride)

	ledger := service.NewCapacityLedger(rideRepo, nil)

	var successes int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.Reserve(context.Background(), "ride-1", 1, func(ctx context.Context) error {
				return nil
			})
			if err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly 1 winner for the last seat, got %d", successes)
	}
}

func TestCapacityLedger_Release_ClampedAtTotal(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newActiveRide("ride-1", "driver-1", 4)
	ride.AvailableSeats = 3
	rideRepo.AddRide(ride)

	ledger := service.NewCapacityLedger(rideRepo, nil)

	if err := ledger.Release(context.Background(), "ride-1", 5); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 4 {
		t.Errorf("expected seats clamped at total 4, got %d", got)
	}
}

func TestCapacityLedger_InvalidSeatCount_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))

	ledger := service.NewCapacityLedger(rideRepo, nil)

	for _, seats := range []int{0, -1, 9} {
		err := ledger.Reserve(context.Background(), "ride-1", seats, func(ctx context.Context) error {
			return nil
		})
		if !errors.Is(err, service.ErrInvalidSeatCount) {
			t.Errorf("seats=%d: expected ErrInvalidSeatCount, got: %v", seats, err)
		}
	}
}
