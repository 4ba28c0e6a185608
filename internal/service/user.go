package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"carpool/internal/domain"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
)

// UserService handles registration, credential checks and profile reads.
type UserService struct {
	userRepo   repository.UserRepository
	cacheStore *internalRedis.CacheStore
}

// NewUserService creates a new UserService. cacheStore may be nil.
func NewUserService(userRepo repository.UserRepository, cacheStore *internalRedis.CacheStore) *UserService {
	return &UserService{userRepo: userRepo, cacheStore: cacheStore}
}

// RegisterRequest contains the parameters for creating an account.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      domain.Role
	Bio       string
}

// Register creates a new user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidCredentials
	}
	if len(req.Password) < 8 {
		return nil, ErrInvalidCredentials
	}
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         req.Role,
		Bio:          req.Bio,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user, nil
}

// Authenticate checks an email/password pair and returns the matching
// user. Wrong email and wrong password both come back as
// ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetProfile retrieves a user by ID, serving the cached projection when
// possible. The cached copy carries no credentials.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetUser(ctx, userID)
		if err != nil {
			log.Printf("user: cache read for %s failed: %v", userID, err)
		} else if cached != nil {
			return &domain.User{
				ID:           cached.ID,
				FirstName:    cached.FirstName,
				LastName:     cached.LastName,
				Role:         domain.Role(cached.Role),
				Rating:       cached.Rating,
				TotalReviews: cached.TotalReviews,
			}, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		cached := &internalRedis.CachedUser{
			ID:           user.ID,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			Role:         string(user.Role),
			Rating:       user.Rating,
			TotalReviews: user.TotalReviews,
		}
		if err := s.cacheStore.SetUser(ctx, cached); err != nil {
			log.Printf("user: cache write for %s failed: %v", userID, err)
		}
	}

	return user, nil
}
