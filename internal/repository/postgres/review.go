package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// ReviewRepository implements repository.ReviewRepository using
// PostgreSQL. One review per (ride, reviewer) is enforced by a unique
// index on (ride_id, reviewer_id).
type ReviewRepository struct {
	db Querier
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, ride_id, reviewer_id, reviewee_id, rating, comment,
		punctuality, friendliness, cleanliness, communication, created_at`

// Create persists a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, ride_id, reviewer_id, reviewee_id, rating, comment,
			punctuality, friendliness, cleanliness, communication)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		review.ID,
		review.RideID,
		review.ReviewerID,
		review.RevieweeID,
		review.Rating,
		review.Comment,
		nullableScore(review.Categories.Punctuality),
		nullableScore(review.Categories.Friendliness),
		nullableScore(review.Categories.Cleanliness),
		nullableScore(review.Categories.Communication),
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}

	return err
}

// GetByRideAndReviewer retrieves the reviewer's review for a ride.
func (r *ReviewRepository) GetByRideAndReviewer(ctx context.Context, rideID, reviewerID string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE ride_id = $1 AND reviewer_id = $2`

	review, err := scanReview(r.db.QueryRowContext(ctx, query, rideID, reviewerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return review, err
}

// ListForReviewee retrieves reviews received by a user, newest first.
func (r *ReviewRepository) ListForReviewee(ctx context.Context, revieweeID string) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE reviewee_id = $1 ORDER BY created_at DESC LIMIT 100`
	return r.list(ctx, query, revieweeID)
}

// ListByReviewer retrieves reviews written by a user, newest first.
func (r *ReviewRepository) ListByReviewer(ctx context.Context, reviewerID string) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE reviewer_id = $1 ORDER BY created_at DESC LIMIT 100`
	return r.list(ctx, query, reviewerID)
}

// CategoryAverages computes the mean of each optional category score
// across the reviews a user has received. NULL scores are excluded by
// AVG itself.
func (r *ReviewRepository) CategoryAverages(ctx context.Context, revieweeID string) (*domain.CategoryAverages, error) {
	query := `
		SELECT COALESCE(AVG(punctuality), 0), COALESCE(AVG(friendliness), 0),
		       COALESCE(AVG(cleanliness), 0), COALESCE(AVG(communication), 0)
		FROM reviews WHERE reviewee_id = $1
	`

	var averages domain.CategoryAverages
	err := r.db.QueryRowContext(ctx, query, revieweeID).Scan(
		&averages.Punctuality,
		&averages.Friendliness,
		&averages.Cleanliness,
		&averages.Communication,
	)
	if err != nil {
		return nil, err
	}

	return &averages, nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
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

func (r *ReviewRepository) list(ctx context.Context, query string, arg any) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		review, err := scanReviewRows(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func nullableScore(score int) sql.NullInt64 {
	if score == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(score), Valid: true}
}

func scanReview(row *sql.Row) (*domain.Review, error) {
	var review domain.Review
	var punctuality, friendliness, cleanliness, communication sql.NullInt64

	err := row.Scan(
		&review.ID,
		&review.RideID,
		&review.ReviewerID,
		&review.RevieweeID,
		&review.Rating,
		&review.Comment,
		&punctuality,
		&friendliness,
		&cleanliness,
		&communication,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	review.Categories = categoriesFromNullable(punctuality, friendliness, cleanliness, communication)
	return &review, nil
}

func scanReviewRows(rows *sql.Rows) (*domain.Review, error) {
	var review domain.Review
	var punctuality, friendliness, cleanliness, communication sql.NullInt64

	err := rows.Scan(
		&review.ID,
		&review.RideID,
		&review.ReviewerID,
		&review.RevieweeID,
		&review.Rating,
		&review.Comment,
		&punctuality,
		&friendliness,
		&cleanliness,
		&communication,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	review.Categories = categoriesFromNullable(punctuality, friendliness, cleanliness, communication)
	return &review, nil
}

func categoriesFromNullable(punctuality, friendliness, cleanliness, communication sql.NullInt64) domain.CategoryScores {
	return domain.CategoryScores{
		Punctuality:   int(punctuality.Int64),
		Friendliness:  int(friendliness.Int64),
		Cleanliness:   int(cleanliness.Int64),
		Communication: int(communication.Int64),
	}
}

// Ensure ReviewRepository implements repository.ReviewRepository.
var _ repository.ReviewRepository = (*ReviewRepository)(nil)
