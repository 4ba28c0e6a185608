package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// PublishRideRequest is the HTTP request body for publishing a ride.
type PublishRideRequest struct {
	DepartureCity      string    `json:"departure_city"`
	DepartureAddress   string    `json:"departure_address,omitempty"`
	DestinationCity    string    `json:"destination_city"`
	DestinationAddress string    `json:"destination_address,omitempty"`
	DepartureTime      time.Time `json:"departure_time"`
	PricePerSeat       float64   `json:"price_per_seat"`
	TotalSeats         int       `json:"total_seats"`
	Description        string    `json:"description,omitempty"`
}

// UpdateRideRequest is the HTTP request body for editing a ride.
// Absent fields are left unchanged.
type UpdateRideRequest struct {
	DepartureCity      *string    `json:"departure_city,omitempty"`
	DepartureAddress   *string    `json:"departure_address,omitempty"`
	DestinationCity    *string    `json:"destination_city,omitempty"`
	DestinationAddress *string    `json:"destination_address,omitempty"`
	DepartureTime      *time.Time `json:"departure_time,omitempty"`
	PricePerSeat       *float64   `json:"price_per_seat,omitempty"`
	TotalSeats         *int       `json:"total_seats,omitempty"`
	Description        *string    `json:"description,omitempty"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                 string  `json:"id"`
	DriverID           string  `json:"driver_id"`
	DepartureCity      string  `json:"departure_city"`
	DepartureAddress   string  `json:"departure_address,omitempty"`
	DestinationCity    string  `json:"destination_city"`
	DestinationAddress string  `json:"destination_address,omitempty"`
	DepartureTime      string  `json:"departure_time"`
	PricePerSeat       float64 `json:"price_per_seat"`
	TotalSeats         int     `json:"total_seats"`
	AvailableSeats     int     `json:"available_seats"`
	Description        string  `json:"description,omitempty"`
	Status             string  `json:"status"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	return RideResponse{
		ID:                 ride.ID,
		DriverID:           ride.DriverID,
		DepartureCity:      ride.DepartureCity,
		DepartureAddress:   ride.DepartureAddress,
		DestinationCity:    ride.DestinationCity,
		DestinationAddress: ride.DestinationAddress,
		DepartureTime:      ride.DepartureTime.Format(time.RFC3339),
		PricePerSeat:       ride.PricePerSeat,
		TotalSeats:         ride.TotalSeats,
		AvailableSeats:     ride.AvailableSeats,
		Description:        ride.Description,
		Status:             string(ride.Status),
	}
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		out = append(out, toRideResponse(ride))
	}
	return out
}

// PublishRide handles POST /v1/rides
func (h *RideHandler) PublishRide(c *gin.Context) {
	var req PublishRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.PublishRide(c.Request.Context(), service.PublishRideRequest{
		DriverID:           middleware.CallerID(c),
		DepartureCity:      req.DepartureCity,
		DepartureAddress:   req.DepartureAddress,
		DestinationCity:    req.DestinationCity,
		DestinationAddress: req.DestinationAddress,
		DepartureTime:      req.DepartureTime,
		PricePerSeat:       req.PricePerSeat,
		TotalSeats:         req.TotalSeats,
		Description:        req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// SearchRides handles GET /v1/rides/search
func (h *RideHandler) SearchRides(c *gin.Context) {
	filter := repository.RideFilter{
		DepartureCity:   c.Query("from"),
		DestinationCity: c.Query("to"),
	}

	if date := c.Query("date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		filter.Date = parsed
	}

	if seats := c.Query("seats"); seats != "" {
		n, err := strconv.Atoi(seats)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "seats must be a positive integer"})
			return
		}
		filter.MinSeats = n
	}

	rides, err := h.rideService.SearchRides(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"rides": toRideResponses(rides)})
}

// ListMine handles GET /v1/rides/driver/mine
func (h *RideHandler) ListMine(c *gin.Context) {
	rides, err := h.rideService.ListByDriver(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"rides": toRideResponses(rides)})
}

// UpdateRide handles PUT /v1/rides/:id
func (h *RideHandler) UpdateRide(c *gin.Context) {
	var req UpdateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.UpdateRide(c.Request.Context(), service.UpdateRideRequest{
		RideID:             c.Param("id"),
		DriverID:           middleware.CallerID(c),
		DepartureCity:      req.DepartureCity,
		DepartureAddress:   req.DepartureAddress,
		DestinationCity:    req.DestinationCity,
		DestinationAddress: req.DestinationAddress,
		DepartureTime:      req.DepartureTime,
		PricePerSeat:       req.PricePerSeat,
		TotalSeats:         req.TotalSeats,
		Description:        req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": string(domain.RideStatusCancelled)})
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	err := h.rideService.CompleteRide(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": string(domain.RideStatusCompleted)})
}
