package service

import "errors"

var (
	// ErrInvalidUserID is returned when a user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidRideID is returned when a ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidBookingID is returned when a booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidSeatCount is returned when a seat count is outside 1-8.
	ErrInvalidSeatCount = errors.New("seat count must be between 1 and 8")

	// ErrInvalidPrice is returned when a price per seat is negative.
	ErrInvalidPrice = errors.New("price per seat must not be negative")

	// ErrInvalidDepartureTime is returned when a departure time is unset.
	ErrInvalidDepartureTime = errors.New("invalid departure time")

	// ErrMissingLocation is returned when a departure or destination city
	// is empty.
	ErrMissingLocation = errors.New("departure and destination are required")

	// ErrInvalidRating is returned when an overall rating is outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidCategoryScore is returned when a category score is
	// outside 1-5.
	ErrInvalidCategoryScore = errors.New("category score must be between 1 and 5")

	// ErrCommentTooLong is returned when a review comment exceeds the
	// maximum length.
	ErrCommentTooLong = errors.New("comment too long")

	// ErrInvalidBookingStatus is returned when a requested status is not
	// a settable booking status.
	ErrInvalidBookingStatus = errors.New("invalid booking status")

	// ErrUnauthorized is returned when the actor lacks rights over the
	// target entity.
	ErrUnauthorized = errors.New("not authorized for this operation")

	// ErrSelfBooking is returned when a driver tries to book their own
	// ride.
	ErrSelfBooking = errors.New("cannot book your own ride")

	// ErrDuplicateBooking is returned when the passenger already holds an
	// active booking on the ride.
	ErrDuplicateBooking = errors.New("booking already exists for this ride")

	// ErrCapacityExceeded is returned when a ride has fewer seats
	// available than requested.
	ErrCapacityExceeded = errors.New("not enough seats available")

	// ErrRideUnavailable is returned when an operation targets a ride
	// that is not active.
	ErrRideUnavailable = errors.New("ride is not available")

	// ErrRideAlreadyCancelled is returned when cancelling an already
	// cancelled ride.
	ErrRideAlreadyCancelled = errors.New("ride already cancelled")

	// ErrRideNotCancellable is returned when cancelling a completed ride.
	ErrRideNotCancellable = errors.New("ride cannot be cancelled in current state")

	// ErrRideHasBookings is returned when editing a ride that has active
	// bookings.
	ErrRideHasBookings = errors.New("cannot update ride with active bookings")

	// ErrAlreadyCancelled is returned when cancelling an already
	// cancelled booking.
	ErrAlreadyCancelled = errors.New("booking already cancelled")

	// ErrCannotCancelCompleted is returned when cancelling a completed
	// booking.
	ErrCannotCancelCompleted = errors.New("cannot cancel completed booking")

	// ErrIllegalTransition is returned when a requested booking status
	// change is not legal from the current state.
	ErrIllegalTransition = errors.New("illegal booking status transition")

	// ErrNoCompletedBooking is returned when reviewing a ride without a
	// completed booking on it.
	ErrNoCompletedBooking = errors.New("no completed booking found for this ride")

	// ErrDuplicateReview is returned when the reviewer already reviewed
	// this ride.
	ErrDuplicateReview = errors.New("review already exists for this ride")

	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRole is returned when a registration names an unknown role.
	ErrInvalidRole = errors.New("role must be DRIVER, PASSENGER or BOTH")
)
