package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// BookingRepository implements repository.BookingRepository using
// PostgreSQL. The duplicate guard is a partial unique index:
//
//	CREATE UNIQUE INDEX bookings_active_ride_passenger
//	ON bookings (ride_id, passenger_id)
//	WHERE status <> 'CANCELLED';
//
// so the check-then-insert race resolves inside the database: the later of
// two concurrent inserts for the same pair fails with a unique violation.
type BookingRepository struct {
	db Querier
}

// NewBookingRepository creates a new BookingRepository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, ride_id, passenger_id, seats, total_price, status, payment_status, notes, created_at`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, ride_id, passenger_id, seats, total_price, status, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.RideID,
		booking.PassengerID,
		booking.Seats,
		booking.TotalPrice,
		booking.Status,
		booking.PaymentStatus,
		booking.Notes,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}

	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return booking, err
}

// GetActiveByRideAndPassenger retrieves the passenger's pending or
// confirmed booking on the ride.
func (r *BookingRepository) GetActiveByRideAndPassenger(ctx context.Context, rideID, passengerID string) (*domain.Booking, error) {
	return r.getByRidePassengerStatus(ctx, rideID, passengerID,
		domain.BookingStatusPending, domain.BookingStatusConfirmed)
}

// GetCompletedByRideAndPassenger retrieves the passenger's completed
// booking on the ride.
func (r *BookingRepository) GetCompletedByRideAndPassenger(ctx context.Context, rideID, passengerID string) (*domain.Booking, error) {
	return r.getByRidePassengerStatus(ctx, rideID, passengerID, domain.BookingStatusCompleted)
}

func (r *BookingRepository) getByRidePassengerStatus(ctx context.Context, rideID, passengerID string, statuses ...domain.BookingStatus) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE ride_id = $1 AND passenger_id = $2 AND status = ANY($3)
		LIMIT 1
	`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, rideID, passengerID, statusArray(statuses)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return booking, err
}

// ListByPassenger retrieves a passenger's bookings, newest first.
func (r *BookingRepository) ListByPassenger(ctx context.Context, passengerID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE passenger_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, passengerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListByRide retrieves all bookings on a ride, newest first.
func (r *BookingRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ride_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// Transition moves the booking to status to iff its current status is one
// of the allowed ones. Concurrent transitions race on the row guard, so
// exactly one of two competing calls wins.
func (r *BookingRepository) Transition(ctx context.Context, id string, to domain.BookingStatus, allowedFrom ...domain.BookingStatus) error {
	query := `UPDATE bookings SET status = $1 WHERE id = $2 AND status = ANY($3)`

	result, err := r.db.ExecContext(ctx, query, to, id, statusArray(allowedFrom))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrConflict
	}

	return nil
}

// UpdatePaymentStatus sets the booking's payment flag.
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	query := `UPDATE bookings SET payment_status = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
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

// CancelActiveByRide force-cancels every pending or confirmed booking on
// the ride and returns the affected bookings.
func (r *BookingRepository) CancelActiveByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	query := `
		UPDATE bookings SET status = $1
		WHERE ride_id = $2 AND status = ANY($3)
		RETURNING ` + bookingColumns

	rows, err := r.db.QueryContext(ctx, query,
		domain.BookingStatusCancelled,
		rideID,
		statusArray([]domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusConfirmed}),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// CountActiveByRide counts pending and confirmed bookings on a ride.
func (r *BookingRepository) CountActiveByRide(ctx context.Context, rideID string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE ride_id = $1 AND status = ANY($2)`

	var count int
	err := r.db.QueryRowContext(ctx, query, rideID,
		statusArray([]domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusConfirmed}),
	).Scan(&count)

	return count, err
}

func statusArray(statuses []domain.BookingStatus) any {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return pq.Array(values)
}

func scanBooking(row *sql.Row) (*domain.Booking, error) {
	var booking domain.Booking
	err := row.Scan(
		&booking.ID,
		&booking.RideID,
		&booking.PassengerID,
		&booking.Seats,
		&booking.TotalPrice,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.Notes,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func collectBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	for rows.Next() {
		var booking domain.Booking
		if err := rows.Scan(
			&booking.ID,
			&booking.RideID,
			&booking.PassengerID,
			&booking.Seats,
			&booking.TotalPrice,
			&booking.Status,
			&booking.PaymentStatus,
			&booking.Notes,
			&booking.CreatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, &booking)
	}
	return bookings, rows.Err()
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
