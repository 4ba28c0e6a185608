package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
)

const (
	rideLockTTL       = 5 * time.Second
	rideLockRetryWait = 25 * time.Millisecond
)

// BookingService handles the booking lifecycle: creation against the
// capacity ledger, cancellation with seat release, and driver-side
// status transitions.
type BookingService struct {
	bookingRepo         repository.BookingRepository
	rideRepo            repository.RideRepository
	ledger              *CapacityLedger
	lockStore           internalRedis.LockStoreInterface
	notificationService *NotificationService
}

// NewBookingService creates a new BookingService.
// lockStore and notificationService may be nil.
func NewBookingService(
	bookingRepo repository.BookingRepository,
	rideRepo repository.RideRepository,
	ledger *CapacityLedger,
	lockStore internalRedis.LockStoreInterface,
	notificationService *NotificationService,
) *BookingService {
	return &BookingService{
		bookingRepo:         bookingRepo,
		rideRepo:            rideRepo,
		ledger:              ledger,
		lockStore:           lockStore,
		notificationService: notificationService,
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	RideID      string
	PassengerID string
	Seats       int
	Notes       string
}

// CreateBooking reserves seats on a ride and persists the booking.
//
// The duplicate check, the seat reservation, and the insert all run
// inside the ride's critical section: two concurrent requests for the
// same (ride, passenger) pair cannot both succeed, and two concurrent
// requests for the last seat resolve to exactly one winner. A failed
// insert rolls the reservation back before the error is returned.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.PassengerID == "" {
		return nil, ErrInvalidUserID
	}
	if req.Seats < domain.MinSeats || req.Seats > domain.MaxSeats {
		return nil, ErrInvalidSeatCount
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	if ride.DriverID == req.PassengerID {
		return nil, ErrSelfBooking
	}

	if ride.Status != domain.RideStatusActive {
		return nil, ErrRideUnavailable
	}

	// Multi-instance guard; the ledger's critical section and the
	// conditional update stay authoritative if the lock is unavailable.
	if release := s.acquireRideLock(ctx, ride.ID); release != nil {
		defer release()
	}

	booking := &domain.Booking{
		ID:            uuid.New().String(),
		RideID:        ride.ID,
		PassengerID:   req.PassengerID,
		Seats:         req.Seats,
		TotalPrice:    float64(req.Seats) * ride.PricePerSeat,
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPending,
		Notes:         req.Notes,
		CreatedAt:     time.Now(),
	}

	err = s.ledger.Reserve(ctx, ride.ID, req.Seats, func(ctx context.Context) error {
		existing, err := s.bookingRepo.GetActiveByRideAndPassenger(ctx, ride.ID, req.PassengerID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if existing != nil {
			return ErrDuplicateBooking
		}

		if err := s.bookingRepo.Create(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateBooking
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyBookingCreated(ctx, booking, ride.DriverID)
	}

	return booking, nil
}

// CancelBooking cancels a booking on behalf of its passenger or the
// ride's driver and releases the reserved seats. Retrying a cancel that
// already happened returns ErrAlreadyCancelled with no further effect.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID string) error {
	if bookingID == "" {
		return ErrInvalidBookingID
	}
	if actorID == "" {
		return ErrInvalidUserID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		return err
	}

	if actorID != booking.PassengerID && actorID != ride.DriverID {
		return ErrUnauthorized
	}

	if err := s.cancelAndRelease(ctx, booking); err != nil {
		return err
	}

	if s.notificationService != nil {
		recipientID := booking.PassengerID
		if actorID == booking.PassengerID {
			recipientID = ride.DriverID
		}
		_ = s.notificationService.NotifyBookingCancelled(ctx, booking, recipientID)
	}

	return nil
}

// SetBookingStatusRequest contains the parameters for a driver-initiated
// status transition.
type SetBookingStatusRequest struct {
	BookingID string
	ActorID   string
	Status    domain.BookingStatus
}

// SetBookingStatus applies a driver-initiated transition to confirmed,
// completed, or cancelled. Cancellation releases seats; completion
// consumes none (the seats were travelled) and unlocks review
// submission for the passenger.
func (s *BookingService) SetBookingStatus(ctx context.Context, req SetBookingStatusRequest) (*domain.Booking, error) {
	if req.BookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if req.ActorID == "" {
		return nil, ErrInvalidUserID
	}

	switch req.Status {
	case domain.BookingStatusConfirmed, domain.BookingStatusCompleted, domain.BookingStatusCancelled:
	default:
		return nil, ErrInvalidBookingStatus
	}

	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}

	if req.ActorID != ride.DriverID {
		return nil, ErrUnauthorized
	}

	if req.Status == domain.BookingStatusCancelled {
		if err := s.cancelAndRelease(ctx, booking); err != nil {
			return nil, err
		}
	} else {
		if !booking.Status.CanTransitionTo(req.Status) {
			return nil, s.classifyIllegal(booking.Status, req.Status)
		}

		if err := s.bookingRepo.Transition(ctx, booking.ID, req.Status, booking.Status); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return nil, s.reclassify(ctx, booking.ID, req.Status)
			}
			return nil, err
		}
	}

	updated, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyBookingStatusChanged(ctx, updated)
	}

	return updated, nil
}

// ListByPassenger retrieves the passenger's own bookings.
func (s *BookingService) ListByPassenger(ctx context.Context, passengerID string) ([]*domain.Booking, error) {
	if passengerID == "" {
		return nil, ErrInvalidUserID
	}
	return s.bookingRepo.ListByPassenger(ctx, passengerID)
}

// ListByRide retrieves the bookings on a ride for its driver.
func (s *BookingService) ListByRide(ctx context.Context, rideID, actorID string) ([]*domain.Booking, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if actorID != ride.DriverID {
		return nil, ErrUnauthorized
	}

	return s.bookingRepo.ListByRide(ctx, rideID)
}

// GetBooking retrieves a booking visible to its passenger or the ride's
// driver.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}

	if actorID != booking.PassengerID && actorID != ride.DriverID {
		return nil, ErrUnauthorized
	}

	return booking, nil
}

// MarkBookingPaid flips a booking's payment flag to paid. Drivers mark
// this after collecting payment; no processing happens here.
func (s *BookingService) MarkBookingPaid(ctx context.Context, bookingID, actorID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}

	if actorID != ride.DriverID {
		return nil, ErrUnauthorized
	}

	if booking.Status == domain.BookingStatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	if err := s.bookingRepo.UpdatePaymentStatus(ctx, bookingID, domain.PaymentStatusPaid); err != nil {
		return nil, err
	}

	booking.PaymentStatus = domain.PaymentStatusPaid
	return booking, nil
}

// cancelAndRelease performs the cancel transition and the seat release
// as one effect: if the release fails, the transition is undone so a
// retry starts clean.
func (s *BookingService) cancelAndRelease(ctx context.Context, booking *domain.Booking) error {
	switch booking.Status {
	case domain.BookingStatusCancelled:
		return ErrAlreadyCancelled
	case domain.BookingStatusCompleted:
		return ErrCannotCancelCompleted
	}

	prior := booking.Status

	err := s.bookingRepo.Transition(ctx, booking.ID, domain.BookingStatusCancelled,
		domain.BookingStatusPending, domain.BookingStatusConfirmed)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return s.reclassify(ctx, booking.ID, domain.BookingStatusCancelled)
		}
		return err
	}

	if err := s.ledger.Release(ctx, booking.RideID, booking.Seats); err != nil {
		if undoErr := s.bookingRepo.Transition(ctx, booking.ID, prior, domain.BookingStatusCancelled); undoErr != nil {
			log.Printf("booking: failed to undo cancel of %s after release error: %v", booking.ID, undoErr)
		}
		return err
	}

	booking.Status = domain.BookingStatusCancelled

	if booking.PaymentStatus == domain.PaymentStatusPaid {
		if err := s.bookingRepo.UpdatePaymentStatus(ctx, booking.ID, domain.PaymentStatusRefunded); err != nil {
			log.Printf("booking: failed to flag refund for %s: %v", booking.ID, err)
		} else {
			booking.PaymentStatus = domain.PaymentStatusRefunded
		}
	}

	return nil
}

// reclassify re-reads the booking after a lost transition race and
// returns the error the caller would have seen without the race, so
// retries are idempotent.
func (s *BookingService) reclassify(ctx context.Context, bookingID string, wanted domain.BookingStatus) error {
	current, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.classifyIllegal(current.Status, wanted)
}

func (s *BookingService) classifyIllegal(from, to domain.BookingStatus) error {
	if to == domain.BookingStatusCancelled {
		switch from {
		case domain.BookingStatusCancelled:
			return ErrAlreadyCancelled
		case domain.BookingStatusCompleted:
			return ErrCannotCancelCompleted
		}
	}
	return ErrIllegalTransition
}

// acquireRideLock best-effort acquires the distributed ride lock,
// waiting briefly on contention. Returns nil when no lock store is
// configured or the lock could not be taken before the context deadline.
func (s *BookingService) acquireRideLock(ctx context.Context, rideID string) func() {
	if s.lockStore == nil {
		return nil
	}

	deadline := time.Now().Add(rideLockTTL)
	for {
		ok, err := s.lockStore.AcquireRideLock(ctx, rideID, rideLockTTL)
		if err != nil {
			return nil
		}
		if ok {
			return func() {
				_ = s.lockStore.ReleaseRideLock(ctx, rideID)
			}
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return nil
		}
		time.Sleep(rideLockRetryWait)
	}
}
