package source

import (
	"context"
	"log/slog"

	"cloud.google.com/go/civil"
	otelx "github.com/md-rashed-zaman/clinicgrid/libs/otel"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/schedule"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	SourceAvailability = "availability"
	SourceBookings     = "bookings"

	WarnAvailability = "Could not load the doctor's schedule; no working hours are shown."
	WarnBookings     = "Could not load bookings; working slots are shown as available."
)

type AvailabilityFetcher interface {
	GetDoctorAvailability(ctx context.Context, doctorID string) (*schedule.Availability, error)
}

type BookingFetcher interface {
	GetBookingsForDoctor(ctx context.Context, doctorID string, from, to civil.Date) ([]schedule.Booking, error)
}

// Snapshot is everything a grid render needs. A failed fetch leaves its part empty and
// adds a warning.
type Snapshot struct {
	Availability *schedule.Availability
	Bookings     []schedule.Booking
	Warnings     []string
}

type Loader struct {
	availability AvailabilityFetcher
	bookings     BookingFetcher
	metrics      *metrics.GridMetrics
	logger       *slog.Logger
}

func NewLoader(availability AvailabilityFetcher, bookings BookingFetcher, m *metrics.GridMetrics, logger *slog.Logger) *Loader {
	return &Loader{availability: availability, bookings: bookings, metrics: m, logger: logger}
}

// Load fetches availability and the week's bookings concurrently. Neither fetch cancels
// the other.
func (l *Loader) Load(ctx context.Context, doctorID string, week [7]civil.Date) Snapshot {
	ctx, span := otelx.Tracer("schedule").Start(ctx, "schedule.load_snapshot",
		trace.WithAttributes(
			attribute.String("doctor.id", doctorID),
			attribute.String("week.start", week[0].String()),
		),
	)
	defer span.End()

	var (
		g           errgroup.Group
		snap        Snapshot
		availErr    error
		bookingsErr error
	)
	g.Go(func() error {
		snap.Availability, availErr = l.availability.GetDoctorAvailability(ctx, doctorID)
		return nil
	})
	g.Go(func() error {
		snap.Bookings, bookingsErr = l.bookings.GetBookingsForDoctor(ctx, doctorID, week[0], week[6])
		return nil
	})
	_ = g.Wait()

	if availErr != nil {
		l.degrade(span, &snap, SourceAvailability, WarnAvailability, doctorID, availErr)
		snap.Availability = nil
	}
	if bookingsErr != nil {
		l.degrade(span, &snap, SourceBookings, WarnBookings, doctorID, bookingsErr)
		snap.Bookings = nil
	}
	return snap
}

func (l *Loader) degrade(span trace.Span, snap *Snapshot, source, warning, doctorID string, err error) {
	l.logger.Warn("schedule source failed", "source", source, "doctor_id", doctorID, "err", err)
	l.metrics.SourceFailed(source)
	span.RecordError(err, trace.WithAttributes(attribute.String("source", source)))
	snap.Warnings = append(snap.Warnings, warning)
}
