package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// ReceiptService renders booking receipts as PDF documents.
type ReceiptService struct {
	bookingRepo repository.BookingRepository
	rideRepo    repository.RideRepository
	userRepo    repository.UserRepository
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(
	bookingRepo repository.BookingRepository,
	rideRepo repository.RideRepository,
	userRepo repository.UserRepository,
) *ReceiptService {
	return &ReceiptService{bookingRepo: bookingRepo, rideRepo: rideRepo, userRepo: userRepo}
}

// GenerateBookingReceipt builds a PDF receipt for a booking. Only the
// passenger who owns the booking may request it.
func (s *ReceiptService) GenerateBookingReceipt(ctx context.Context, bookingID, requesterID string) ([]byte, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != requesterID {
		return nil, ErrUnauthorized
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}

	passenger, err := s.userRepo.GetByID(ctx, booking.PassengerID)
	if err != nil {
		return nil, err
	}

	return renderReceipt(booking, ride, passenger)
}

func renderReceipt(booking *domain.Booking, ride *domain.Ride, passenger *domain.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "Booking Receipt")
	pdf.Ln(16)

	pdf.SetFont("Arial", "", 11)
	receiptLine(pdf, "Receipt for", fmt.Sprintf("%s %s", passenger.FirstName, passenger.LastName))
	receiptLine(pdf, "Booking ID", booking.ID)
	receiptLine(pdf, "Booked on", booking.CreatedAt.Format("2 Jan 2006 15:04"))
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Trip")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	receiptLine(pdf, "From", fmt.Sprintf("%s, %s", ride.DepartureAddress, ride.DepartureCity))
	receiptLine(pdf, "To", fmt.Sprintf("%s, %s", ride.DestinationAddress, ride.DestinationCity))
	receiptLine(pdf, "Departure", ride.DepartureTime.Format("2 Jan 2006 15:04"))
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Payment")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	receiptLine(pdf, "Seats", fmt.Sprintf("%d x %.2f", booking.Seats, ride.PricePerSeat))
	receiptLine(pdf, "Total", fmt.Sprintf("%.2f", booking.TotalPrice))
	receiptLine(pdf, "Payment status", string(booking.PaymentStatus))
	receiptLine(pdf, "Booking status", string(booking.Status))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func receiptLine(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(40, 7, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}
