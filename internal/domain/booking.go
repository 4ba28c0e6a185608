package domain

import "time"

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// IsActive reports whether the booking still holds seats on its ride.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// CanTransitionTo reports whether moving from s to next is legal.
// The state graph is pending -> confirmed -> completed, with cancelled
// reachable from pending and confirmed only.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCompleted || next == BookingStatusCancelled
	default:
		return false
	}
}

// PaymentStatus is tracked on a booking but never enforced by the core.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Booking represents a passenger's reservation of seats on a ride.
//
// TotalPrice is frozen at creation time (seats x the ride's price per seat
// at that instant); later price edits to the ride do not change it.
// Bookings are never deleted; cancellation is a terminal state.
type Booking struct {
	ID            string
	RideID        string
	PassengerID   string
	Seats         int
	TotalPrice    float64
	Status        BookingStatus
	PaymentStatus PaymentStatus
	Notes         string
	CreatedAt     time.Time
}
