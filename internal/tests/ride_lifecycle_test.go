package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// 5. RIDE LIFECYCLE
// ──────────────────────────────────────────────

func newRideService(rideRepo *MockRideRepository, bookingRepo *MockBookingRepository, userRepo *MockUserRepository) *service.RideService {
	ledger := service.NewCapacityLedger(rideRepo, nil)
	return service.NewRideService(rideRepo, bookingRepo, userRepo, ledger, nil, nil)
}

func addDriver(userRepo *MockUserRepository, id string) {
	userRepo.AddUser(&domain.User{
		ID:        id,
		Email:     id + "@example.com",
		FirstName: "Test",
		LastName:  "Driver",
		Role:      domain.RoleDriver,
		CreatedAt: time.Now(),
	})
}

func TestRidePublish_AllSeatsAvailable(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	userRepo := NewMockUserRepository()
	addDriver(userRepo, "driver-1")

	rideService := newRideService(rideRepo, NewMockBookingRepository(), userRepo)

	ride, err := rideService.PublishRide(context.Background(), service.PublishRideRequest{
		DriverID:        "driver-1",
		DepartureCity:   "Lyon",
		DestinationCity: "Paris",
		DepartureTime:   time.Now().Add(48 * time.Hour),
		PricePerSeat:    20,
		TotalSeats:      3,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if ride.Status != domain.RideStatusActive {
		t.Errorf("expected status ACTIVE, got %s", ride.Status)
	}
	if ride.AvailableSeats != 3 {
		t.Errorf("expected all 3 seats available, got %d", ride.AvailableSeats)
	}
}

func TestRidePublish_InvalidSeatCount_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	userRepo := NewMockUserRepository()
	addDriver(userRepo, "driver-1")

	rideService := newRideService(rideRepo, NewMockBookingRepository(), userRepo)

	for _, seats := range []int{0, -2, 9} {
		_, err := rideService.PublishRide(context.Background(), service.PublishRideRequest{
			DriverID:        "driver-1",
			DepartureCity:   "Lyon",
			DestinationCity: "Paris",
			DepartureTime:   time.Now().Add(48 * time.Hour),
			PricePerSeat:    20,
			TotalSeats:      seats,
		})
		if !errors.Is(err, service.ErrInvalidSeatCount) {
			t.Errorf("seats=%d: expected ErrInvalidSeatCount, got: %v", seats, err)
		}
	}
}

func TestRidePublish_PassengerRole_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	userRepo := NewMockUserRepository()
	userRepo.AddUser(&domain.User{
		ID:    "passenger-1",
		Email: "p@example.com",
		Role:  domain.RolePassenger,
	})

	rideService := newRideService(rideRepo, NewMockBookingRepository(), userRepo)

	_, err := rideService.PublishRide(context.Background(), service.PublishRideRequest{
		DriverID:        "passenger-1",
		DepartureCity:   "Lyon",
		DestinationCity: "Paris",
		DepartureTime:   time.Now().Add(48 * time.Hour),
		PricePerSeat:    20,
		TotalSeats:      3,
	})
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got: %v", err)
	}
}

func TestRideCancel_CascadesToActiveBookings(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newActiveRide("ride-1", "driver-1", 8)
	ride.AvailableSeats = 5
	rideRepo.AddRide(ride)

	bookingRepo := NewMockBookingRepository()
	statuses := []domain.BookingStatus{
		domain.BookingStatusPending,
		domain.BookingStatusConfirmed,
		domain.BookingStatusConfirmed,
	}
	for i, status := range statuses {
		bookingRepo.AddBooking(&domain.Booking{
			ID:          "booking-" + string(rune('a'+i)),
			RideID:      "ride-1",
			PassengerID: "passenger-" + string(rune('a'+i)),
			Seats:       1,
			Status:      status,
			CreatedAt:   time.Now(),
		})
	}
	// A completed booking on the same ride must survive the cascade.
	bookingRepo.AddBooking(&domain.Booking{
		ID:          "booking-done",
		RideID:      "ride-1",
		PassengerID: "passenger-done",
		Seats:       1,
		Status:      domain.BookingStatusCompleted,
		CreatedAt:   time.Now(),
	})

	userRepo := NewMockUserRepository()
	rideService := newRideService(rideRepo, bookingRepo, userRepo)

	if err := rideService.CancelRide(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := rideRepo.GetRide("ride-1").Status; got != domain.RideStatusCancelled {
		t.Errorf("expected ride CANCELLED, got %s", got)
	}

	for _, id := range []string{"booking-a", "booking-b", "booking-c"} {
		if got := bookingRepo.GetBooking(id).Status; got != domain.BookingStatusCancelled {
			t.Errorf("booking %s: expected CANCELLED, got %s", id, got)
		}
	}
	if got := bookingRepo.GetBooking("booking-done").Status; got != domain.BookingStatusCompleted {
		t.Errorf("completed booking must not be cascaded, got %s", got)
	}

	// Cascade cancellation never goes through the seat ledger.
	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 5 {
		t.Errorf("expected seat count untouched at 5, got %d", got)
	}
	if rideRepo.ReleaseSeatsCallCount != 0 {
		t.Errorf("expected no seat releases, got %d", rideRepo.ReleaseSeatsCallCount)
	}
}

func TestRideCancel_AlreadyCancelled_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newActiveRide("ride-1", "driver-1", 4)
	ride.Status = domain.RideStatusCancelled
	rideRepo.AddRide(ride)

	rideService := newRideService(rideRepo, NewMockBookingRepository(), NewMockUserRepository())

	err := rideService.CancelRide(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrRideAlreadyCancelled) {
		t.Fatalf("expected ErrRideAlreadyCancelled, got: %v", err)
	}
}

func TestRideCancel_NotOwner_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))

	rideService := newRideService(rideRepo, NewMockBookingRepository(), NewMockUserRepository())

	err := rideService.CancelRide(context.Background(), "ride-1", "driver-2")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got: %v", err)
	}
}

func TestRideUpdate_WithActiveBookings_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))

	bookingRepo := NewMockBookingRepository()
	bookingRepo.AddBooking(&domain.Booking{
		ID:          "booking-1",
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
		Status:      domain.BookingStatusConfirmed,
		CreatedAt:   time.Now(),
	})

	rideService := newRideService(rideRepo, bookingRepo, NewMockUserRepository())

	newPrice := 42.0
	_, err := rideService.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:       "ride-1",
		DriverID:     "driver-1",
		PricePerSeat: &newPrice,
	})
	if !errors.Is(err, service.ErrRideHasBookings) {
		t.Fatalf("expected ErrRideHasBookings, got: %v", err)
	}
}

func TestRideUpdate_SeatChange_ResetsAvailability(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))

	rideService := newRideService(rideRepo, NewMockBookingRepository(), NewMockUserRepository())

	newSeats := 6
	updated, err := rideService.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:     "ride-1",
		DriverID:   "driver-1",
		TotalSeats: &newSeats,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.TotalSeats != 6 || updated.AvailableSeats != 6 {
		t.Errorf("expected 6/6 seats, got %d/%d", updated.AvailableSeats, updated.TotalSeats)
	}
}

func TestRideComplete_StatusOnly(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newActiveRide("ride-1", "driver-1", 4)
	ride.AvailableSeats = 2
	rideRepo.AddRide(ride)

	rideService := newRideService(rideRepo, NewMockBookingRepository(), NewMockUserRepository())

	if err := rideService.CompleteRide(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got := rideRepo.GetRide("ride-1")
	if got.Status != domain.RideStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
	if got.AvailableSeats != 2 {
		t.Errorf("expected seat count untouched at 2, got %d", got.AvailableSeats)
	}

	// A second completion fails the status guard.
	err := rideService.CompleteRide(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrRideUnavailable) {
		t.Fatalf("expected ErrRideUnavailable on repeat, got: %v", err)
	}
}

func TestRideUpdate_SeatResetSerializedWithBooking(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 2))
	bookingRepo := NewMockBookingRepository()
	userRepo := NewMockUserRepository()
	addDriver(userRepo, "driver-1")

	ledger := service.NewCapacityLedger(rideRepo, nil)
	bookingService := service.NewBookingService(bookingRepo, rideRepo, ledger, nil, nil)
	rideService := service.NewRideService(rideRepo, bookingRepo, userRepo, ledger, nil, nil)

	// Hold the seat-reset write open once the active-booking count has
	// already passed, then try to book inside that window.
	entered := make(chan struct{})
	resume := make(chan struct{})
	rideRepo.UpdateHook = func() {
		close(entered)
		<-resume
	}

	updateDone := make(chan error, 1)
	go func() {
		seats := 2
		_, err := rideService.UpdateRide(context.Background(), service.UpdateRideRequest{
			RideID:     "ride-1",
			DriverID:   "driver-1",
			TotalSeats: &seats,
		})
		updateDone <- err
	}()

	<-entered

	bookingDone := make(chan error, 1)
	go func() {
		_, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
			RideID:      "ride-1",
			PassengerID: "passenger-1",
			Seats:       1,
		})
		bookingDone <- err
	}()

	// The booking must wait for the update, not slip into the window.
	var bookingErr error
	bookingRan := false
	select {
	case bookingErr = <-bookingDone:
		bookingRan = true
	case <-time.After(50 * time.Millisecond):
	}
	close(resume)

	if err := <-updateDone; err != nil {
		t.Fatalf("update: %v", err)
	}
	if !bookingRan {
		bookingErr = <-bookingDone
	}
	if bookingErr != nil {
		t.Fatalf("booking: %v", bookingErr)
	}

	got := rideRepo.GetRide("ride-1")
	if got.AvailableSeats != got.TotalSeats-1 {
		t.Errorf("expected %d seat(s) left after one 1-seat booking, got %d",
			got.TotalSeats-1, got.AvailableSeats)
	}

	// The surviving reservation keeps a full-ride booking out.
	_, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-2",
		Seats:       2,
	})
	if !errors.Is(err, service.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got: %v", err)
	}
}
