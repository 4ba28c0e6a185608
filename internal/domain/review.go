package domain

import "time"

// Rating bounds for the overall rating and each category score.
const (
	MinRating = 1
	MaxRating = 5
)

// CategoryScores holds optional per-category ratings. A zero value means
// the reviewer did not score that category.
type CategoryScores struct {
	Punctuality   int
	Friendliness  int
	Cleanliness   int
	Communication int
}

// Review is a passenger's rating of a driver for one completed ride.
// Created once, immutable thereafter; at most one review may exist per
// (ride, reviewer) pair.
type Review struct {
	ID         string
	RideID     string
	ReviewerID string
	RevieweeID string
	Rating     int
	Comment    string
	Categories CategoryScores
	CreatedAt  time.Time
}

// CategoryAverages holds per-category mean scores across a user's
// received reviews. Zero means no review scored that category.
type CategoryAverages struct {
	Punctuality   float64
	Friendliness  float64
	Cleanliness   float64
	Communication float64
}
