package source

import (
	"context"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/model"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/schedule"
)

type BookingLister interface {
	ListForDoctor(ctx context.Context, doctorID string, from, to civil.Date) ([]model.BookingRecord, error)
}

type BookingService struct {
	store  BookingLister
	logger *slog.Logger
}

func NewBookingService(store BookingLister, logger *slog.Logger) *BookingService {
	return &BookingService{store: store, logger: logger}
}

// GetBookingsForDoctor returns the doctor's matchable bookings dated within [from, to].
func (s *BookingService) GetBookingsForDoctor(ctx context.Context, doctorID string, from, to civil.Date) ([]schedule.Booking, error) {
	recs, err := s.store.ListForDoctor(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	bookings, dropped := model.NormalizeBookings(recs)
	if dropped > 0 {
		s.logger.Warn("bookings without start time or duration skipped", "doctor_id", doctorID, "count", dropped)
	}
	return bookings, nil
}
