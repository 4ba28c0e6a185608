package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	RideCacheTTL = 30 * time.Second // Seat counts change on every booking
	UserCacheTTL = 60 * time.Second // Profile and rating aggregate
)

// Key prefixes
const (
	rideCachePrefix = "cache:ride:"
	userCachePrefix = "cache:user:"
)

// CachedRide represents a cached ride entity.
type CachedRide struct {
	ID                 string    `json:"id"`
	DriverID           string    `json:"driver_id"`
	DepartureCity      string    `json:"departure_city"`
	DepartureAddress   string    `json:"departure_address"`
	DestinationCity    string    `json:"destination_city"`
	DestinationAddress string    `json:"destination_address"`
	DepartureTime      time.Time `json:"departure_time"`
	PricePerSeat       float64   `json:"price_per_seat"`
	TotalSeats         int       `json:"total_seats"`
	AvailableSeats     int       `json:"available_seats"`
	Description        string    `json:"description"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

// CachedUser represents a cached user entity.
type CachedUser struct {
	ID           string  `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Role         string  `json:"role"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
}

// GetRide retrieves a ride from cache. A nil result means a cache miss.
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*CachedRide, error) {
	key := rideCachePrefix + rideID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var ride CachedRide
	if err := json.Unmarshal(data, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a ride in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *CachedRide) error {
	key := rideCachePrefix + ride.ID
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, RideCacheTTL).Err()
}

// InvalidateRide removes a ride from cache. Called after every mutation
// that touches the ride row, seat reservations and releases included.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	key := rideCachePrefix + rideID
	return s.client.Del(ctx, key).Err()
}

// GetUser retrieves a user from cache. A nil result means a cache miss.
func (s *CacheStore) GetUser(ctx context.Context, userID string) (*CachedUser, error) {
	key := userCachePrefix + userID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var user CachedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUser stores a user in cache.
func (s *CacheStore) SetUser(ctx context.Context, user *CachedUser) error {
	key := userCachePrefix + user.ID
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, UserCacheTTL).Err()
}

// InvalidateUser removes a user from cache. Called after a rating absorb
// so the aggregate read path never serves a stale mean for long.
func (s *CacheStore) InvalidateUser(ctx context.Context, userID string) error {
	key := userCachePrefix + userID
	return s.client.Del(ctx, key).Err()
}
