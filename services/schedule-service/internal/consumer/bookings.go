package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicgrid/libs/kafkax"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/model"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

const (
	TopicBookingBooked    = "booking.appointment.booked.v1"
	TopicBookingUpdated   = "booking.appointment.updated.v1"
	TopicBookingCancelled = "booking.appointment.cancelled.v1"
)

var DefaultBookingTopics = []string{TopicBookingBooked, TopicBookingUpdated, TopicBookingCancelled}

// BookingStore is the write side of the bookings projection.
type BookingStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, rec model.BookingRecord) (bool, error)
	Cancel(ctx context.Context, tx pgx.Tx, code string, at time.Time) error
}

// bookingEvent is the payload the booking service publishes for all three topics.
type bookingEvent struct {
	BookingCode     string `json:"booking_code"`
	DoctorID        string `json:"doctor_id"`
	BookingDate     string `json:"booking_date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"service_duration_minutes"`
	Status          string `json:"status"`
	CustomerName    string `json:"customer_name"`
	ServiceName     string `json:"service_name"`
	Notes           string `json:"notes"`
	OccurredAt      string `json:"occurred_at"`
}

// BookingProjector keeps doctor_bookings in step with the booking service.
type BookingProjector struct {
	store  BookingStore
	logger *slog.Logger
	now    func() time.Time
}

func NewBookingProjector(store BookingStore, logger *slog.Logger) *BookingProjector {
	return &BookingProjector{store: store, logger: logger, now: time.Now}
}

// Handle is a consumer Handler. Undecodable or incomplete events are logged and dropped.
func (p *BookingProjector) Handle(ctx context.Context, tx pgx.Tx, msg kafka.Message) error {
	var evt bookingEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		p.logger.Error("invalid booking event", "err", err, "topic", msg.Topic)
		return nil
	}
	evt.BookingCode = strings.TrimSpace(evt.BookingCode)
	evt.DoctorID = strings.TrimSpace(evt.DoctorID)
	if evt.BookingCode == "" {
		p.logger.Error("booking event without booking_code", "topic", msg.Topic)
		return nil
	}

	occurredAt := p.now().UTC()
	if evt.OccurredAt != "" {
		if t, err := time.Parse(time.RFC3339, evt.OccurredAt); err == nil {
			occurredAt = t.UTC()
		}
	}

	switch kafkax.ExtractEventMeta(msg).EventType {
	case TopicBookingCancelled:
		err := p.store.Cancel(ctx, tx, evt.BookingCode, occurredAt)
		if errors.Is(err, storage.ErrNotFound) {
			p.logger.Warn("cancel for unknown or newer booking ignored", "booking_code", evt.BookingCode)
			return nil
		}
		return err
	case TopicBookingBooked, TopicBookingUpdated:
		if evt.DoctorID == "" || evt.BookingDate == "" {
			p.logger.Error("booking event missing doctor_id or booking_date", "booking_code", evt.BookingCode)
			return nil
		}
		applied, err := p.store.Upsert(ctx, tx, model.BookingRecord{
			Code:            evt.BookingCode,
			DoctorID:        evt.DoctorID,
			BookingDate:     evt.BookingDate,
			StartTime:       evt.StartTime,
			DurationMinutes: evt.DurationMinutes,
			Status:          strings.ToLower(strings.TrimSpace(evt.Status)),
			CustomerName:    evt.CustomerName,
			ServiceName:     evt.ServiceName,
			Notes:           evt.Notes,
			UpdatedAt:       occurredAt,
		})
		if err != nil {
			return err
		}
		if !applied {
			p.logger.Info("stale booking snapshot ignored", "booking_code", evt.BookingCode)
		}
		return nil
	default:
		p.logger.Warn("unhandled event type", "topic", msg.Topic)
		return nil
	}
}
