package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusActive    RideStatus = "ACTIVE"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// Seat capacity bounds for a published ride.
const (
	MinSeats = 1
	MaxSeats = 8
)

// Ride represents a driver-published ride offer with fixed seat capacity.
//
// AvailableSeats is mutated only through the capacity ledger
// (reserve/release deltas); nothing writes it as an absolute value after
// creation. The invariant 0 <= AvailableSeats <= TotalSeats holds at all
// times.
type Ride struct {
	ID                 string
	DriverID           string
	DepartureCity      string
	DepartureAddress   string
	DestinationCity    string
	DestinationAddress string
	DepartureTime      time.Time
	PricePerSeat       float64
	TotalSeats         int
	AvailableSeats     int
	Description        string
	Status             RideStatus
	CreatedAt          time.Time
}
