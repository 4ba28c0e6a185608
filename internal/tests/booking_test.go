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
// 2. BOOKING CREATION
// ──────────────────────────────────────────────

func newBookingService(rideRepo *MockRideRepository, bookingRepo *MockBookingRepository) *service.BookingService {
	ledger := service.NewCapacityLedger(rideRepo, nil)
	return service.NewBookingService(bookingRepo, rideRepo, ledger, nil, nil)
}

func TestBookingCreation_ValidInput_Succeeds(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	booking, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       2,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if booking.ID == "" {
		t.Error("expected booking ID to be set")
	}
	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("expected status CONFIRMED, got %s", booking.Status)
	}
	if booking.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status PENDING, got %s", booking.PaymentStatus)
	}
	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 2 {
		t.Errorf("expected 2 seats remaining, got %d", got)
	}
}

func TestBookingCreation_PriceFrozenAtBookingTime(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newActiveRide("ride-1", "driver-1", 4)
	ride.PricePerSeat = 12.5
	rideRepo.AddRide(ride)
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	booking, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       2,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if booking.TotalPrice != 25.0 {
		t.Errorf("expected total price 25.0, got %v", booking.TotalPrice)
	}

	// A later price change must not affect the stored booking.
	updated := *ride
	updated.PricePerSeat = 99
	if err := rideRepo.Update(context.Background(), &updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored := bookingRepo.GetBooking(booking.ID)
	if stored.TotalPrice != 25.0 {
		t.Errorf("expected booking price to stay 25.0, got %v", stored.TotalPrice)
	}
}

func TestBookingCreation_SelfBooking_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	_, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "driver-1",
		Seats:       1,
	})
	if !errors.Is(err, service.ErrSelfBooking) {
		t.Fatalf("expected ErrSelfBooking, got: %v", err)
	}
}

func TestBookingCreation_DuplicateActiveBooking_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	first, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
	})
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err = bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
	})
	if !errors.Is(err, service.ErrDuplicateBooking) {
		t.Fatalf("expected ErrDuplicateBooking, got: %v", err)
	}

	// The rejected attempt must not leak a reservation.
	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 3 {
		t.Errorf("expected 3 seats remaining after duplicate rejection, got %d", got)
	}

	// After cancelling, the passenger may book again.
	if err := bookingService.CancelBooking(context.Background(), first.ID, "passenger-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
	}); err != nil {
		t.Fatalf("rebooking after cancel should succeed, got: %v", err)
	}
}

func TestBookingCreation_ConcurrentDuplicates_OneWinner(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 8))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	var successes int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
				RideID:      "ride-1",
				PassengerID: "passenger-1",
				Seats:       1,
			})
			if err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly 1 booking to win, got %d", successes)
	}
	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 7 {
		t.Errorf("expected 7 seats remaining, got %d", got)
	}
}

func TestBookingCreation_InactiveRide_Fails(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.RideStatus{domain.RideStatusCompleted, domain.RideStatusCancelled} {
		ride := newActiveRide("ride-"+string(status), "driver-1", 4)
		ride.Status = status

		rideRepo := NewMockRideRepository()
		rideRepo.AddRide(ride)
		bookingService := newBookingService(rideRepo, NewMockBookingRepository())

		_, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
			RideID:      ride.ID,
			PassengerID: "passenger-1",
			Seats:       1,
		})
		if !errors.Is(err, service.ErrRideUnavailable) {
			t.Errorf("status=%s: expected ErrRideUnavailable, got: %v", status, err)
		}
	}
}

// ──────────────────────────────────────────────
// 3. BOOKING CANCELLATION
// ──────────────────────────────────────────────

func TestBookingCancellation_RestoresSeats(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	booking, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := bookingService.CancelBooking(context.Background(), booking.ID, "passenger-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := bookingRepo.GetBooking(booking.ID).Status; got != domain.BookingStatusCancelled {
		t.Errorf("expected status CANCELLED, got %s", got)
	}
	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 4 {
		t.Errorf("expected all 4 seats restored, got %d", got)
	}
}

func TestBookingCancellation_DoubleCancel_Idempotent(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	booking, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := bookingService.CancelBooking(context.Background(), booking.ID, "passenger-1"); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	err = bookingService.CancelBooking(context.Background(), booking.ID, "passenger-1")
	if !errors.Is(err, service.ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got: %v", err)
	}

	// Seats must be released exactly once.
	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 4 {
		t.Errorf("expected 4 seats, got %d", got)
	}
}

func TestBookingCancellation_CompletedBooking_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()
	bookingRepo.AddBooking(&domain.Booking{
		ID:          "booking-1",
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
		Status:      domain.BookingStatusCompleted,
		CreatedAt:   time.Now(),
	})

	bookingService := newBookingService(rideRepo, bookingRepo)

	err := bookingService.CancelBooking(context.Background(), "booking-1", "passenger-1")
	if !errors.Is(err, service.ErrCannotCancelCompleted) {
		t.Fatalf("expected ErrCannotCancelCompleted, got: %v", err)
	}
}

func TestBookingCancellation_Unauthorized_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	booking, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = bookingService.CancelBooking(context.Background(), booking.ID, "stranger")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got: %v", err)
	}

	// The driver may cancel a passenger's booking.
	if err := bookingService.CancelBooking(context.Background(), booking.ID, "driver-1"); err != nil {
		t.Fatalf("driver cancel should succeed, got: %v", err)
	}
}

func TestBookingCancellation_PaidBooking_FlagsRefund(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	booking, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := bookingService.MarkBookingPaid(context.Background(), booking.ID, "driver-1"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	if err := bookingService.CancelBooking(context.Background(), booking.ID, "passenger-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := bookingRepo.GetBooking(booking.ID).PaymentStatus; got != domain.PaymentStatusRefunded {
		t.Errorf("expected payment status REFUNDED, got %s", got)
	}
}

// ──────────────────────────────────────────────
// 4. BOOKING STATUS TRANSITIONS
// ──────────────────────────────────────────────

func TestBookingStatus_LegalTransitions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		from    domain.BookingStatus
		to      domain.BookingStatus
		wantErr error
	}{
		{domain.BookingStatusPending, domain.BookingStatusConfirmed, nil},
		{domain.BookingStatusPending, domain.BookingStatusCancelled, nil},
		{domain.BookingStatusConfirmed, domain.BookingStatusCompleted, nil},
		{domain.BookingStatusConfirmed, domain.BookingStatusCancelled, nil},
		{domain.BookingStatusPending, domain.BookingStatusCompleted, service.ErrIllegalTransition},
		{domain.BookingStatusCompleted, domain.BookingStatusConfirmed, service.ErrIllegalTransition},
		{domain.BookingStatusCancelled, domain.BookingStatusConfirmed, service.ErrIllegalTransition},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			t.Parallel()

			rideRepo := NewMockRideRepository()
			ride := newActiveRide("ride-1", "driver-1", 4)
			ride.AvailableSeats = 3
			rideRepo.AddRide(ride)

			bookingRepo := NewMockBookingRepository()
			bookingRepo.AddBooking(&domain.Booking{
				ID:          "booking-1",
				RideID:      "ride-1",
				PassengerID: "passenger-1",
				Seats:       1,
				Status:      tc.from,
				CreatedAt:   time.Now(),
			})

			bookingService := newBookingService(rideRepo, bookingRepo)

			_, err := bookingService.SetBookingStatus(context.Background(), service.SetBookingStatusRequest{
				BookingID: "booking-1",
				ActorID:   "driver-1",
				Status:    tc.to,
			})

			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected transition to succeed, got: %v", err)
				}
				if got := bookingRepo.GetBooking("booking-1").Status; got != tc.to {
					t.Errorf("expected status %s, got %s", tc.to, got)
				}
			} else if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestBookingStatus_OnlyDriverMayTransition(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()
	bookingRepo.AddBooking(&domain.Booking{
		ID:          "booking-1",
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
		Status:      domain.BookingStatusPending,
		CreatedAt:   time.Now(),
	})

	bookingService := newBookingService(rideRepo, bookingRepo)

	_, err := bookingService.SetBookingStatus(context.Background(), service.SetBookingStatusRequest{
		BookingID: "booking-1",
		ActorID:   "passenger-1",
		Status:    domain.BookingStatusConfirmed,
	})
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got: %v", err)
	}
}

func TestBookingStatus_CancelViaStatus_ReleasesSeats(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	booking, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := bookingService.SetBookingStatus(context.Background(), service.SetBookingStatusRequest{
		BookingID: booking.ID,
		ActorID:   "driver-1",
		Status:    domain.BookingStatusCancelled,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	if updated.Status != domain.BookingStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", updated.Status)
	}
	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 4 {
		t.Errorf("expected seats restored to 4, got %d", got)
	}
}

func TestBookingStatus_CompletionConsumesNoSeats(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newActiveRide("ride-1", "driver-1", 4))
	bookingRepo := NewMockBookingRepository()

	bookingService := newBookingService(rideRepo, bookingRepo)

	booking, err := bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := bookingService.SetBookingStatus(context.Background(), service.SetBookingStatusRequest{
		BookingID: booking.ID,
		ActorID:   "driver-1",
		Status:    domain.BookingStatusCompleted,
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	if got := rideRepo.GetRide("ride-1").AvailableSeats; got != 2 {
		t.Errorf("expected seat count unchanged at 2, got %d", got)
	}
}
