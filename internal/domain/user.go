package domain

import "time"

// Role represents what a user is allowed to do on the platform.
type Role string

const (
	RoleDriver    Role = "DRIVER"
	RolePassenger Role = "PASSENGER"
	RoleBoth      Role = "BOTH"
)

// CanDrive reports whether the role allows publishing rides.
func (r Role) CanDrive() bool {
	return r == RoleDriver || r == RoleBoth
}

// CanBook reports whether the role allows reserving seats.
func (r Role) CanBook() bool {
	return r == RolePassenger || r == RoleBoth
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDriver, RolePassenger, RoleBoth:
		return true
	}
	return false
}

// User represents a driver, a passenger, or both.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         Role
	Bio          string

	// Running rating aggregate. Rating is a streaming mean over all
	// absorbed review ratings; it is never recomputed from history.
	Rating       float64
	TotalReviews int

	CreatedAt time.Time
}

// RatingAggregate is a user's running mean rating and review count.
type RatingAggregate struct {
	Mean  float64
	Count int
}
