package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// UserHandler handles HTTP requests for user profiles and ratings.
type UserHandler struct {
	userService   *service.UserService
	reviewService *service.ReviewService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService, reviewService *service.ReviewService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		reviewService: reviewService,
	}
}

// UserResponse is the public projection of a user.
type UserResponse struct {
	ID           string  `json:"id"`
	Email        string  `json:"email,omitempty"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Phone        string  `json:"phone,omitempty"`
	Role         string  `json:"role"`
	Bio          string  `json:"bio,omitempty"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
}

// RatingResponse is the HTTP response for a user's rating aggregate.
type RatingResponse struct {
	UserID string  `json:"user_id"`
	Mean   float64 `json:"mean"`
	Count  int     `json:"count"`
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Phone:        user.Phone,
		Role:         string(user.Role),
		Bio:          user.Bio,
		Rating:       user.Rating,
		TotalReviews: user.TotalReviews,
	}
}

// GetUser handles GET /v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("id")

	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Never expose contact details on the public profile.
	resp := toUserResponse(user)
	resp.Email = ""
	resp.Phone = ""
	respondJSON(c, http.StatusOK, resp)
}

// GetUserRating handles GET /v1/users/:id/rating
func (h *UserHandler) GetUserRating(c *gin.Context) {
	userID := c.Param("id")

	aggregate, err := h.reviewService.GetRatingAggregate(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RatingResponse{
		UserID: userID,
		Mean:   aggregate.Mean,
		Count:  aggregate.Count,
	})
}
