package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// ReviewHandler handles HTTP requests for reviews.
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// SubmitReviewRequest is the HTTP request body for submitting a review.
type SubmitReviewRequest struct {
	RideID     string `json:"ride_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	Categories struct {
		Punctuality   int `json:"punctuality,omitempty"`
		Friendliness  int `json:"friendliness,omitempty"`
		Cleanliness   int `json:"cleanliness,omitempty"`
		Communication int `json:"communication,omitempty"`
	} `json:"categories,omitempty"`
}

// ReviewResponse is the HTTP representation of a review.
type ReviewResponse struct {
	ID         string         `json:"id"`
	RideID     string         `json:"ride_id"`
	ReviewerID string         `json:"reviewer_id"`
	RevieweeID string         `json:"reviewee_id"`
	Rating     int            `json:"rating"`
	Comment    string         `json:"comment,omitempty"`
	Categories map[string]int `json:"categories,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

// UserReviewsResponse is the HTTP response for a user's received reviews.
type UserReviewsResponse struct {
	Reviews          []ReviewResponse   `json:"reviews"`
	CategoryAverages map[string]float64 `json:"category_averages"`
	Rating           RatingResponse     `json:"rating"`
}

func toReviewResponse(review *domain.Review) ReviewResponse {
	resp := ReviewResponse{
		ID:         review.ID,
		RideID:     review.RideID,
		ReviewerID: review.ReviewerID,
		RevieweeID: review.RevieweeID,
		Rating:     review.Rating,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt.Format(time.RFC3339),
	}

	categories := map[string]int{}
	for name, score := range map[string]int{
		"punctuality":   review.Categories.Punctuality,
		"friendliness":  review.Categories.Friendliness,
		"cleanliness":   review.Categories.Cleanliness,
		"communication": review.Categories.Communication,
	} {
		if score > 0 {
			categories[name] = score
		}
	}
	if len(categories) > 0 {
		resp.Categories = categories
	}
	return resp
}

func toReviewResponses(reviews []*domain.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, toReviewResponse(review))
	}
	return out
}

// SubmitReview handles POST /v1/reviews
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	review, err := h.reviewService.SubmitReview(c.Request.Context(), service.SubmitReviewRequest{
		RideID:     req.RideID,
		ReviewerID: middleware.CallerID(c),
		Rating:     req.Rating,
		Comment:    req.Comment,
		Categories: domain.CategoryScores{
			Punctuality:   req.Categories.Punctuality,
			Friendliness:  req.Categories.Friendliness,
			Cleanliness:   req.Categories.Cleanliness,
			Communication: req.Categories.Communication,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toReviewResponse(review))
}

// ListForUser handles GET /v1/reviews/user/:id
func (h *ReviewHandler) ListForUser(c *gin.Context) {
	userID := c.Param("id")

	result, err := h.reviewService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, UserReviewsResponse{
		Reviews: toReviewResponses(result.Reviews),
		CategoryAverages: map[string]float64{
			"punctuality":   result.Averages.Punctuality,
			"friendliness":  result.Averages.Friendliness,
			"cleanliness":   result.Averages.Cleanliness,
			"communication": result.Averages.Communication,
		},
		Rating: RatingResponse{
			UserID: userID,
			Mean:   result.Aggregate.Mean,
			Count:  result.Aggregate.Count,
		},
	})
}

// ListByReviewer handles GET /v1/reviews/by-user/:id
func (h *ReviewHandler) ListByReviewer(c *gin.Context) {
	reviews, err := h.reviewService.ListByReviewer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"reviews": toReviewResponses(reviews)})
}
