package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidSeatCount),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidDepartureTime),
		errors.Is(err, service.ErrMissingLocation),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidCategoryScore),
		errors.Is(err, service.ErrCommentTooLong),
		errors.Is(err, service.ErrInvalidBookingStatus),
		errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest

	// Authentication failures
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrSelfBooking):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateBooking),
		errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrRideUnavailable),
		errors.Is(err, service.ErrRideAlreadyCancelled),
		errors.Is(err, service.ErrRideNotCancellable),
		errors.Is(err, service.ErrRideHasBookings),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrCannotCancelCompleted),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrNoCompletedBooking),
		errors.Is(err, service.ErrDuplicateReview),
		errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
