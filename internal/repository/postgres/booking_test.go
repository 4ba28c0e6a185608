package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

func bookingRows(id string, status domain.BookingStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "ride_id", "passenger_id", "seats", "total_price", "status", "payment_status", "notes", "created_at",
	}).AddRow(id, "ride-1", "passenger-1", 1, 15.0, string(status), "PENDING", "", time.Now())
}

func TestBookingRepository_Create_UniqueViolationIsDuplicate(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&pq.Error{Code: "23505"})

	repo := NewBookingRepository(db)
	err = repo.Create(context.Background(), &domain.Booking{
		ID:          "booking-1",
		RideID:      "ride-1",
		PassengerID: "passenger-1",
		Seats:       1,
		Status:      domain.BookingStatusConfirmed,
	})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got: %v", err)
	}
}

func TestBookingRepository_Transition_GuardMissIsConflict(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE bookings SET status = \$1 WHERE id = \$2 AND status = ANY\(\$3\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \$1`).
		WithArgs("booking-1").
		WillReturnRows(bookingRows("booking-1", domain.BookingStatusCancelled))

	repo := NewBookingRepository(db)
	err = repo.Transition(context.Background(), "booking-1", domain.BookingStatusConfirmed, domain.BookingStatusPending)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got: %v", err)
	}
}

func TestBookingRepository_CancelActiveByRide_ReturnsAffected(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "ride_id", "passenger_id", "seats", "total_price", "status", "payment_status", "notes", "created_at",
	}).
		AddRow("booking-1", "ride-1", "passenger-1", 1, 15.0, "CANCELLED", "PENDING", "", time.Now()).
		AddRow("booking-2", "ride-1", "passenger-2", 2, 30.0, "CANCELLED", "PENDING", "", time.Now())

	mock.ExpectQuery(`UPDATE bookings SET status = \$1\s+WHERE ride_id = \$2 AND status = ANY\(\$3\)\s+RETURNING`).
		WillReturnRows(rows)

	repo := NewBookingRepository(db)
	cancelled, err := repo.CancelActiveByRide(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(cancelled) != 2 {
		t.Fatalf("expected 2 cancelled bookings, got %d", len(cancelled))
	}
	for _, b := range cancelled {
		if b.Status != domain.BookingStatusCancelled {
			t.Errorf("booking %s: expected CANCELLED, got %s", b.ID, b.Status)
		}
	}
}
