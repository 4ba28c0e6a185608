package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
)

const maxCommentLength = 500

// ReviewService handles review submission and the per-user rating
// aggregate. Submissions are gated on a completed booking and absorbed
// into a streaming mean, one review at a time per reviewee.
type ReviewService struct {
	reviewRepo          repository.ReviewRepository
	bookingRepo         repository.BookingRepository
	rideRepo            repository.RideRepository
	userRepo            repository.UserRepository
	cacheStore          *internalRedis.CacheStore
	notificationService *NotificationService
	userLocks           *KeyedMutex
}

// NewReviewService creates a new ReviewService.
// cacheStore and notificationService may be nil.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	bookingRepo repository.BookingRepository,
	rideRepo repository.RideRepository,
	userRepo repository.UserRepository,
	cacheStore *internalRedis.CacheStore,
	notificationService *NotificationService,
) *ReviewService {
	return &ReviewService{
		reviewRepo:          reviewRepo,
		bookingRepo:         bookingRepo,
		rideRepo:            rideRepo,
		userRepo:            userRepo,
		cacheStore:          cacheStore,
		notificationService: notificationService,
		userLocks:           NewKeyedMutex(),
	}
}

// SubmitReviewRequest contains the parameters for submitting a review.
type SubmitReviewRequest struct {
	RideID     string
	ReviewerID string
	Rating     int
	Comment    string
	Categories domain.CategoryScores
}

// SubmitReview records a passenger's review of the driver for a ride
// the passenger actually completed, then folds the rating into the
// driver's aggregate. One review per (ride, reviewer); repeats fail
// with ErrDuplicateReview no matter how they race.
func (s *ReviewService) SubmitReview(ctx context.Context, req SubmitReviewRequest) (*domain.Review, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.ReviewerID == "" {
		return nil, ErrInvalidUserID
	}
	if req.Rating < domain.MinRating || req.Rating > domain.MaxRating {
		return nil, ErrInvalidRating
	}
	if err := validateCategories(req.Categories); err != nil {
		return nil, err
	}
	if len(req.Comment) > maxCommentLength {
		return nil, ErrCommentTooLong
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	// The gate: only a completed booking on this ride lets the
	// passenger review the driver.
	if _, err := s.bookingRepo.GetCompletedByRideAndPassenger(ctx, req.RideID, req.ReviewerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoCompletedBooking
		}
		return nil, err
	}

	// Fast path; the unique index catches the race.
	if _, err := s.reviewRepo.GetByRideAndReviewer(ctx, req.RideID, req.ReviewerID); err == nil {
		return nil, ErrDuplicateReview
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	review := &domain.Review{
		ID:         uuid.New().String(),
		RideID:     req.RideID,
		ReviewerID: req.ReviewerID,
		RevieweeID: ride.DriverID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Categories: req.Categories,
		CreatedAt:  time.Now(),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}

	if err := s.absorbRating(ctx, ride.DriverID, req.Rating); err != nil {
		// The aggregate must count exactly the stored reviews, so a
		// failed absorb takes the review back out.
		if delErr := s.reviewRepo.Delete(ctx, review.ID); delErr != nil {
			log.Printf("review: failed to roll back review %s after absorb error: %v", review.ID, delErr)
		}
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyReviewReceived(ctx, review)
	}

	return review, nil
}

// absorbRating folds one rating into the reviewee's streaming mean.
// Serialized per reviewee so concurrent absorbs never lose an update.
func (s *ReviewService) absorbRating(ctx context.Context, revieweeID string, rating int) error {
	unlock := s.userLocks.Lock(revieweeID)
	defer unlock()

	if err := s.userRepo.AbsorbRating(ctx, revieweeID, rating); err != nil {
		return err
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.InvalidateUser(ctx, revieweeID); err != nil {
			log.Printf("review: failed to invalidate user %s cache: %v", revieweeID, err)
		}
	}
	return nil
}

// GetRatingAggregate returns a user's current mean rating and review
// count, serving from cache when possible.
func (s *ReviewService) GetRatingAggregate(ctx context.Context, userID string) (*domain.RatingAggregate, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetUser(ctx, userID)
		if err != nil {
			log.Printf("review: cache read for user %s failed: %v", userID, err)
		} else if cached != nil {
			return &domain.RatingAggregate{Mean: cached.Rating, Count: cached.TotalReviews}, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.RatingAggregate{Mean: user.Rating, Count: user.TotalReviews}, nil
}

// UserReviews bundles a user's received reviews with the per-category
// averages and the overall aggregate.
type UserReviews struct {
	Reviews   []*domain.Review
	Averages  *domain.CategoryAverages
	Aggregate *domain.RatingAggregate
}

// ListForUser retrieves the reviews a user has received.
func (s *ReviewService) ListForUser(ctx context.Context, userID string) (*UserReviews, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	reviews, err := s.reviewRepo.ListForReviewee(ctx, userID)
	if err != nil {
		return nil, err
	}

	averages, err := s.reviewRepo.CategoryAverages(ctx, userID)
	if err != nil {
		return nil, err
	}

	aggregate, err := s.GetRatingAggregate(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserReviews{Reviews: reviews, Averages: averages, Aggregate: aggregate}, nil
}

// ListByReviewer retrieves the reviews a user has written.
func (s *ReviewService) ListByReviewer(ctx context.Context, reviewerID string) ([]*domain.Review, error) {
	if reviewerID == "" {
		return nil, ErrInvalidUserID
	}
	return s.reviewRepo.ListByReviewer(ctx, reviewerID)
}

func validateCategories(c domain.CategoryScores) error {
	for _, score := range []int{c.Punctuality, c.Friendliness, c.Cleanliness, c.Communication} {
		if score == 0 {
			continue
		}
		if score < domain.MinRating || score > domain.MaxRating {
			return ErrInvalidCategoryScore
		}
	}
	return nil
}
