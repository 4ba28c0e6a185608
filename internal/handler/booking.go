package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
	receiptService *service.ReceiptService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, receiptService *service.ReceiptService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		receiptService: receiptService,
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	RideID string `json:"ride_id"`
	Seats  int    `json:"seats"`
	Notes  string `json:"notes,omitempty"`
}

// SetBookingStatusRequest is the HTTP request body for a status change.
type SetBookingStatusRequest struct {
	Status string `json:"status"` // CONFIRMED, COMPLETED, CANCELLED
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	ID            string  `json:"id"`
	RideID        string  `json:"ride_id"`
	PassengerID   string  `json:"passenger_id"`
	Seats         int     `json:"seats"`
	TotalPrice    float64 `json:"total_price"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toBookingResponse(booking *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:            booking.ID,
		RideID:        booking.RideID,
		PassengerID:   booking.PassengerID,
		Seats:         booking.Seats,
		TotalPrice:    booking.TotalPrice,
		Status:        string(booking.Status),
		PaymentStatus: string(booking.PaymentStatus),
		Notes:         booking.Notes,
		CreatedAt:     booking.CreatedAt.Format(time.RFC3339),
	}
}

func toBookingResponses(bookings []*domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingResponse(booking))
	}
	return out
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		RideID:      req.RideID,
		PassengerID: middleware.CallerID(c),
		Seats:       req.Seats,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// ListMine handles GET /v1/bookings/mine
func (h *BookingHandler) ListMine(c *gin.Context) {
	bookings, err := h.bookingService.ListByPassenger(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"bookings": toBookingResponses(bookings)})
}

// ListByRide handles GET /v1/bookings/ride/:id
func (h *BookingHandler) ListByRide(c *gin.Context) {
	bookings, err := h.bookingService.ListByRide(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"bookings": toBookingResponses(bookings)})
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": string(domain.BookingStatusCancelled)})
}

// SetStatus handles PUT /v1/bookings/:id/status
func (h *BookingHandler) SetStatus(c *gin.Context) {
	var req SetBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.SetBookingStatus(c.Request.Context(), service.SetBookingStatusRequest{
		BookingID: c.Param("id"),
		ActorID:   middleware.CallerID(c),
		Status:    domain.BookingStatus(req.Status),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// MarkPaid handles POST /v1/bookings/:id/pay
func (h *BookingHandler) MarkPaid(c *gin.Context) {
	booking, err := h.bookingService.MarkBookingPaid(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// GetReceipt handles GET /v1/bookings/:id/receipt
func (h *BookingHandler) GetReceipt(c *gin.Context) {
	pdf, err := h.receiptService.GenerateBookingReceipt(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=receipt-"+c.Param("id")+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
