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

// RideService handles publishing and managing rides, including the
// cascade cancellation of a ride's active bookings.
type RideService struct {
	rideRepo            repository.RideRepository
	bookingRepo         repository.BookingRepository
	userRepo            repository.UserRepository
	ledger              *CapacityLedger
	cacheStore          *internalRedis.CacheStore
	notificationService *NotificationService
}

// NewRideService creates a new RideService. The ledger must be the
// same instance the booking service reserves through, so that ride
// edits and reservations share one critical section per ride.
// cacheStore and notificationService may be nil.
func NewRideService(
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	ledger *CapacityLedger,
	cacheStore *internalRedis.CacheStore,
	notificationService *NotificationService,
) *RideService {
	return &RideService{
		rideRepo:            rideRepo,
		bookingRepo:         bookingRepo,
		userRepo:            userRepo,
		ledger:              ledger,
		cacheStore:          cacheStore,
		notificationService: notificationService,
	}
}

// PublishRideRequest contains the parameters for publishing a ride.
type PublishRideRequest struct {
	DriverID           string
	DepartureCity      string
	DepartureAddress   string
	DestinationCity    string
	DestinationAddress string
	DepartureTime      time.Time
	PricePerSeat       float64
	TotalSeats         int
	Description        string
}

// PublishRide creates a new active ride with all seats available.
func (s *RideService) PublishRide(ctx context.Context, req PublishRideRequest) (*domain.Ride, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidUserID
	}
	if req.DepartureCity == "" || req.DestinationCity == "" {
		return nil, ErrMissingLocation
	}
	if req.DepartureTime.IsZero() {
		return nil, ErrInvalidDepartureTime
	}
	if req.TotalSeats < domain.MinSeats || req.TotalSeats > domain.MaxSeats {
		return nil, ErrInvalidSeatCount
	}
	if req.PricePerSeat < 0 {
		return nil, ErrInvalidPrice
	}

	driver, err := s.userRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if !driver.Role.CanDrive() {
		return nil, ErrUnauthorized
	}

	ride := &domain.Ride{
		ID:                 uuid.New().String(),
		DriverID:           req.DriverID,
		DepartureCity:      req.DepartureCity,
		DepartureAddress:   req.DepartureAddress,
		DestinationCity:    req.DestinationCity,
		DestinationAddress: req.DestinationAddress,
		DepartureTime:      req.DepartureTime,
		PricePerSeat:       req.PricePerSeat,
		TotalSeats:         req.TotalSeats,
		AvailableSeats:     req.TotalSeats,
		Description:        req.Description,
		Status:             domain.RideStatusActive,
		CreatedAt:          time.Now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	return ride, nil
}

// GetRide retrieves a ride by ID, serving from cache when possible.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetRide(ctx, rideID)
		if err != nil {
			log.Printf("ride: cache read for %s failed: %v", rideID, err)
		} else if cached != nil {
			return cachedToRide(cached), nil
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.SetRide(ctx, rideToCached(ride)); err != nil {
			log.Printf("ride: cache write for %s failed: %v", rideID, err)
		}
	}

	return ride, nil
}

// SearchRides retrieves active rides matching the filter. Plain
// filtering only; relevance ranking belongs to a collaborator.
func (s *RideService) SearchRides(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	return s.rideRepo.Search(ctx, filter)
}

// ListByDriver retrieves all rides published by the driver.
func (s *RideService) ListByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidUserID
	}
	return s.rideRepo.GetByDriverID(ctx, driverID)
}

// UpdateRideRequest contains the editable ride fields; nil means keep.
type UpdateRideRequest struct {
	RideID             string
	DriverID           string
	DepartureCity      *string
	DepartureAddress   *string
	DestinationCity    *string
	DestinationAddress *string
	DepartureTime      *time.Time
	PricePerSeat       *float64
	TotalSeats         *int
	Description        *string
}

// UpdateRide edits a ride that has no active bookings. A total-seats
// change resets availability to the new total; existing bookings keep
// their frozen price whatever the new price per seat.
//
// The whole read-check-write runs inside the ride's critical section:
// a reservation cannot land between the active-booking count and the
// seat reset and have its decrement erased. The repository update is
// additionally guarded on no active bookings existing, so even another
// process cannot overwrite a concurrent reservation.
func (s *RideService) UpdateRide(ctx context.Context, req UpdateRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	var ride *domain.Ride
	err := s.ledger.WithRideLock(ctx, req.RideID, func(ctx context.Context) error {
		var err error
		ride, err = s.rideRepo.GetByID(ctx, req.RideID)
		if err != nil {
			return err
		}

		if req.DriverID != ride.DriverID {
			return ErrUnauthorized
		}

		if ride.Status != domain.RideStatusActive {
			return ErrRideUnavailable
		}

		active, err := s.bookingRepo.CountActiveByRide(ctx, req.RideID)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrRideHasBookings
		}

		if req.DepartureCity != nil {
			ride.DepartureCity = *req.DepartureCity
		}
		if req.DepartureAddress != nil {
			ride.DepartureAddress = *req.DepartureAddress
		}
		if req.DestinationCity != nil {
			ride.DestinationCity = *req.DestinationCity
		}
		if req.DestinationAddress != nil {
			ride.DestinationAddress = *req.DestinationAddress
		}
		if req.DepartureTime != nil {
			ride.DepartureTime = *req.DepartureTime
		}
		if req.PricePerSeat != nil {
			if *req.PricePerSeat < 0 {
				return ErrInvalidPrice
			}
			ride.PricePerSeat = *req.PricePerSeat
		}
		if req.TotalSeats != nil {
			if *req.TotalSeats < domain.MinSeats || *req.TotalSeats > domain.MaxSeats {
				return ErrInvalidSeatCount
			}
			ride.TotalSeats = *req.TotalSeats
			ride.AvailableSeats = *req.TotalSeats
		}
		if req.Description != nil {
			ride.Description = *req.Description
		}
		if ride.DepartureCity == "" || ride.DestinationCity == "" {
			return ErrMissingLocation
		}

		if err := s.rideRepo.Update(ctx, ride); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrRideHasBookings
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ride.ID)
	return ride, nil
}

// CancelRide cancels a ride and force-cancels every pending or
// confirmed booking on it. The capacity ledger is not invoked: once the
// ride itself is cancelled its seat accounting is irrelevant, and
// releasing per booking would double-count.
func (s *RideService) CancelRide(ctx context.Context, rideID, driverID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if driverID == "" {
		return ErrInvalidUserID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}

	if driverID != ride.DriverID {
		return ErrUnauthorized
	}

	err = s.rideRepo.UpdateStatus(ctx, rideID, domain.RideStatusCancelled, domain.RideStatusActive)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return s.classifyCancelMiss(ctx, rideID)
		}
		return err
	}

	cancelled, err := s.bookingRepo.CancelActiveByRide(ctx, rideID)
	if err != nil {
		return err
	}

	s.invalidate(ctx, rideID)

	if s.notificationService != nil {
		for _, booking := range cancelled {
			_ = s.notificationService.NotifyBookingCancelled(ctx, booking, booking.PassengerID)
		}
	}

	return nil
}

// CompleteRide marks a ride as completed once travel has happened,
// which is what lets completed bookings on it accept reviews.
func (s *RideService) CompleteRide(ctx context.Context, rideID, driverID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if driverID == "" {
		return ErrInvalidUserID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}

	if driverID != ride.DriverID {
		return ErrUnauthorized
	}

	err = s.rideRepo.UpdateStatus(ctx, rideID, domain.RideStatusCompleted, domain.RideStatusActive)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrRideUnavailable
		}
		return err
	}

	s.invalidate(ctx, rideID)
	return nil
}

func (s *RideService) classifyCancelMiss(ctx context.Context, rideID string) error {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status == domain.RideStatusCancelled {
		return ErrRideAlreadyCancelled
	}
	return ErrRideNotCancellable
}

func (s *RideService) invalidate(ctx context.Context, rideID string) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateRide(ctx, rideID); err != nil {
		log.Printf("ride: failed to invalidate %s cache: %v", rideID, err)
	}
}

func rideToCached(ride *domain.Ride) *internalRedis.CachedRide {
	return &internalRedis.CachedRide{
		ID:                 ride.ID,
		DriverID:           ride.DriverID,
		DepartureCity:      ride.DepartureCity,
		DepartureAddress:   ride.DepartureAddress,
		DestinationCity:    ride.DestinationCity,
		DestinationAddress: ride.DestinationAddress,
		DepartureTime:      ride.DepartureTime,
		PricePerSeat:       ride.PricePerSeat,
		TotalSeats:         ride.TotalSeats,
		AvailableSeats:     ride.AvailableSeats,
		Description:        ride.Description,
		Status:             string(ride.Status),
		CreatedAt:          ride.CreatedAt,
	}
}

func cachedToRide(cached *internalRedis.CachedRide) *domain.Ride {
	return &domain.Ride{
		ID:                 cached.ID,
		DriverID:           cached.DriverID,
		DepartureCity:      cached.DepartureCity,
		DepartureAddress:   cached.DepartureAddress,
		DestinationCity:    cached.DestinationCity,
		DestinationAddress: cached.DestinationAddress,
		DepartureTime:      cached.DepartureTime,
		PricePerSeat:       cached.PricePerSeat,
		TotalSeats:         cached.TotalSeats,
		AvailableSeats:     cached.AvailableSeats,
		Description:        cached.Description,
		Status:             domain.RideStatus(cached.Status),
		CreatedAt:          cached.CreatedAt,
	}
}
