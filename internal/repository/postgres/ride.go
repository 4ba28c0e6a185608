package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RideRepository implements repository.RideRepository using PostgreSQL.
type RideRepository struct {
	db Querier
}

// NewRideRepository creates a new RideRepository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db}
}

const rideColumns = `id, driver_id, departure_city, departure_address, destination_city, destination_address,
		departure_time, price_per_seat, total_seats, available_seats, description, status, created_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, driver_id, departure_city, departure_address, destination_city, destination_address,
			departure_time, price_per_seat, total_seats, available_seats, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		ride.ID,
		ride.DriverID,
		ride.DepartureCity,
		ride.DepartureAddress,
		ride.DestinationCity,
		ride.DestinationAddress,
		ride.DepartureTime,
		ride.PricePerSeat,
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.Description,
		ride.Status,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return ride, err
}

// Search retrieves active rides matching the filter, soonest first.
func (r *RideRepository) Search(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE status = $1`
	args := []any{domain.RideStatusActive}

	if filter.DepartureCity != "" {
		args = append(args, filter.DepartureCity)
		query += fmt.Sprintf(" AND departure_city ILIKE $%d", len(args))
	}
	if filter.DestinationCity != "" {
		args = append(args, filter.DestinationCity)
		query += fmt.Sprintf(" AND destination_city ILIKE $%d", len(args))
	}
	if filter.MinSeats > 0 {
		args = append(args, filter.MinSeats)
		query += fmt.Sprintf(" AND available_seats >= $%d", len(args))
	}
	if !filter.Date.IsZero() {
		day := filter.Date.Truncate(24 * time.Hour)
		args = append(args, day)
		query += fmt.Sprintf(" AND departure_time >= $%d", len(args))
		args = append(args, day.Add(24*time.Hour))
		query += fmt.Sprintf(" AND departure_time < $%d", len(args))
	} else {
		args = append(args, time.Now())
		query += fmt.Sprintf(" AND departure_time >= $%d", len(args))
	}

	query += " ORDER BY departure_time ASC LIMIT 100"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRides(rows)
}

// GetByDriverID retrieves all rides published by a driver.
func (r *RideRepository) GetByDriverID(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY departure_time DESC`

	rows, err := r.db.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRides(rows)
}

// Update updates a ride's editable fields. Seat counters are deliberately
// excluded; they move only through ReserveSeats and ReleaseSeats, except
// that a total-seats edit resets availability (callers guard that no
// active bookings exist).
// Update rewrites the ride's editable fields, including an absolute
// available_seats value. The statement refuses to apply while any
// non-cancelled booking exists on the ride, so it can never overwrite
// a reservation's decrement; a guard miss surfaces as ErrConflict.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET departure_city = $1, departure_address = $2, destination_city = $3, destination_address = $4,
		    departure_time = $5, price_per_seat = $6, total_seats = $7, available_seats = $8, description = $9
		WHERE id = $10
		  AND NOT EXISTS (
			SELECT 1 FROM bookings WHERE ride_id = $10 AND status <> 'CANCELLED'
		  )
	`

	result, err := r.db.ExecContext(ctx, query,
		ride.DepartureCity,
		ride.DepartureAddress,
		ride.DestinationCity,
		ride.DestinationAddress,
		ride.DepartureTime,
		ride.PricePerSeat,
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.Description,
		ride.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, ride.ID); err != nil {
			return err
		}
		return repository.ErrConflict
	}

	return nil
}

// UpdateStatus transitions the ride's status iff its current status is
// one of the allowed ones.
func (r *RideRepository) UpdateStatus(ctx context.Context, id string, to domain.RideStatus, allowedFrom ...domain.RideStatus) error {
	query := `UPDATE rides SET status = $1 WHERE id = $2 AND status = ANY($3)`

	from := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		from[i] = string(s)
	}

	result, err := r.db.ExecContext(ctx, query, to, id, pq.Array(from))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return r.classifyMiss(ctx, id)
	}

	return nil
}

// ReserveSeats decrements available seats iff the ride is active and has
// enough seats free. The guard and the decrement are one statement, so
// concurrent reservations can never observe a stale count and overcommit.
func (r *RideRepository) ReserveSeats(ctx context.Context, id string, seats int) error {
	query := `
		UPDATE rides
		SET available_seats = available_seats - $2
		WHERE id = $1 AND status = $3 AND available_seats >= $2
	`

	result, err := r.db.ExecContext(ctx, query, id, seats, domain.RideStatusActive)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Distinguish why the guard failed.
		ride, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ride.Status != domain.RideStatusActive {
			return repository.ErrRideNotActive
		}
		return repository.ErrInsufficientSeats
	}

	return nil
}

// ReleaseSeats increments available seats, clamped at the ride's total.
// The clamp should never bite under correct calling discipline, but a
// misbehaving caller must not be able to corrupt the invariant.
func (r *RideRepository) ReleaseSeats(ctx context.Context, id string, seats int) error {
	query := `
		UPDATE rides
		SET available_seats = LEAST(total_seats, available_seats + $2)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, seats)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// classifyMiss turns a zero-row conditional update into the right error.
func (r *RideRepository) classifyMiss(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrConflict
}

func scanRide(row *sql.Row) (*domain.Ride, error) {
	var ride domain.Ride
	err := row.Scan(
		&ride.ID,
		&ride.DriverID,
		&ride.DepartureCity,
		&ride.DepartureAddress,
		&ride.DestinationCity,
		&ride.DestinationAddress,
		&ride.DepartureTime,
		&ride.PricePerSeat,
		&ride.TotalSeats,
		&ride.AvailableSeats,
		&ride.Description,
		&ride.Status,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func collectRides(rows *sql.Rows) ([]*domain.Ride, error) {
	var rides []*domain.Ride
	for rows.Next() {
		var ride domain.Ride
		if err := rows.Scan(
			&ride.ID,
			&ride.DriverID,
			&ride.DepartureCity,
			&ride.DepartureAddress,
			&ride.DestinationCity,
			&ride.DestinationAddress,
			&ride.DepartureTime,
			&ride.PricePerSeat,
			&ride.TotalSeats,
			&ride.AvailableSeats,
			&ride.Description,
			&ride.Status,
			&ride.CreatedAt,
		); err != nil {
			return nil, err
		}
		rides = append(rides, &ride)
	}
	return rides, rows.Err()
}

// Ensure RideRepository implements repository.RideRepository.
var _ repository.RideRepository = (*RideRepository)(nil)
