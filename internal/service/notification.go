package service

import (
	"context"
	"fmt"
	"log"

	"carpool/internal/domain"
)

// NotificationService delivers booking and ride events to the affected
// users. Delivery is log-backed; a push or email channel would slot in
// behind send without touching the callers.
type NotificationService struct{}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyBookingCreated tells the driver a seat was just booked.
func (s *NotificationService) NotifyBookingCreated(ctx context.Context, booking *domain.Booking, driverID string) error {
	msg := fmt.Sprintf("booking %s created on ride %s (%d seat(s))", booking.ID, booking.RideID, booking.Seats)
	return s.send(ctx, driverID, msg)
}

// NotifyBookingCancelled tells the other party a booking was cancelled.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, booking *domain.Booking, recipientID string) error {
	msg := fmt.Sprintf("booking %s on ride %s was cancelled", booking.ID, booking.RideID)
	return s.send(ctx, recipientID, msg)
}

// NotifyBookingStatusChanged tells the passenger the driver moved their
// booking to a new status.
func (s *NotificationService) NotifyBookingStatusChanged(ctx context.Context, booking *domain.Booking) error {
	msg := fmt.Sprintf("booking %s is now %s", booking.ID, booking.Status)
	return s.send(ctx, booking.PassengerID, msg)
}

// NotifyReviewReceived tells a user someone reviewed them.
func (s *NotificationService) NotifyReviewReceived(ctx context.Context, review *domain.Review) error {
	msg := fmt.Sprintf("new %d-star review received on ride %s", review.Rating, review.RideID)
	return s.send(ctx, review.RevieweeID, msg)
}

func (s *NotificationService) send(ctx context.Context, recipientID, message string) error {
	log.Printf("notify %s: %s", recipientID, message)
	return nil
}
