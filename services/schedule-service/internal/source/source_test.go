package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/cache"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/model"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/schedule"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/storage"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var availabilityColumns = []string{"doctor_id", "working_days", "daily_start", "daily_end", "valid_from", "valid_to", "updated_at"}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newService(t *testing.T) (*AvailabilityService, pgxmock.PgxPoolIface, *miniredis.Miniredis) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewAvailabilityService(
		storage.NewAvailabilityRepository(mock),
		cache.NewAvailabilityCache(rdb, time.Minute),
		outbox.NewRepository(),
		discard(),
	)
	return svc, mock, mr
}

func TestAvailabilityService_ReadThroughCache(t *testing.T) {
	svc, mock, mr := newService(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM doctor_availability").WithArgs("doc-1").WillReturnRows(
		pgxmock.NewRows(availabilityColumns).AddRow("doc-1", []string{"monday"}, "08:00", "09:00", "", "", time.Now().UTC()),
	)

	a, err := svc.GetDoctorAvailability(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Len(t, a.Slots(), 3)
	require.True(t, mr.Exists("schedule:availability:doc-1"))

	// second read is served from Redis; no further query is expected
	a, err = svc.GetDoctorAvailability(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, a.IsWorkingDay("Monday"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityService_NotFoundIsNotConfigured(t *testing.T) {
	svc, mock, _ := newService(t)

	mock.ExpectQuery("FROM doctor_availability").WithArgs("doc-new").WillReturnError(pgx.ErrNoRows)
	a, err := svc.GetDoctorAvailability(context.Background(), "doc-new")
	require.NoError(t, err)
	require.Nil(t, a)
}

func TestAvailabilityService_CacheOutageFallsBackToStore(t *testing.T) {
	svc, mock, mr := newService(t)
	mr.Close()

	mock.ExpectQuery("FROM doctor_availability").WithArgs("doc-1").WillReturnRows(
		pgxmock.NewRows(availabilityColumns).AddRow("doc-1", []string{"friday"}, "10:00", "11:00", "", "", time.Now().UTC()),
	)
	a, err := svc.GetDoctorAvailability(context.Background(), "doc-1")
	require.NoError(t, err)
	require.True(t, a.IsWorkingDay("friday"))
}

func TestAvailabilityService_UpdateWritesOutboxAndInvalidates(t *testing.T) {
	svc, mock, mr := newService(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("schedule:availability:doc-1", `{"doctor_id":"doc-1"}`))

	start, _ := schedule.ParseClock("08:00")
	end, _ := schedule.ParseClock("12:00")
	update := schedule.Availability{
		WorkingDays: schedule.NewWeekdaySet(time.Tuesday, time.Thursday),
		DailyStart:  &start,
		DailyEnd:    &end,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO doctor_availability").
		WithArgs("doc-1", []string{"tuesday", "thursday"}, "08:00", "12:00", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(pgxmock.AnyArg(), outbox.AggregateDoctorSchedule, "doc-1", outbox.EventAvailabilityUpdated, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	rec, err := svc.UpdateDoctorAvailability(ctx, "doc-1", update)
	require.NoError(t, err)
	require.Equal(t, []string{"tuesday", "thursday"}, rec.WorkingDays)
	require.False(t, mr.Exists("schedule:availability:doc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityService_UpdateRejectsReversedWindow(t *testing.T) {
	svc, _, _ := newService(t)
	start, _ := schedule.ParseClock("12:00")
	end, _ := schedule.ParseClock("08:00")

	_, err := svc.UpdateDoctorAvailability(context.Background(), "doc-1", schedule.Availability{DailyStart: &start, DailyEnd: &end})
	require.ErrorIs(t, err, ErrInvalidWindow)
}

type stubAvailability struct {
	a     *schedule.Availability
	err   error
	delay time.Duration
}

func (s stubAvailability) GetDoctorAvailability(ctx context.Context, _ string) (*schedule.Availability, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.a, s.err
}

type stubBookings struct {
	bookings []schedule.Booking
	err      error
	from, to civil.Date
}

func (s *stubBookings) GetBookingsForDoctor(_ context.Context, _ string, from, to civil.Date) ([]schedule.Booking, error) {
	s.from, s.to = from, to
	return s.bookings, s.err
}

func TestLoader_BothSucceed(t *testing.T) {
	week := schedule.WeekDatesContaining(civil.Date{Year: 2026, Month: time.January, Day: 28})
	avail := &schedule.Availability{WorkingDays: schedule.NewWeekdaySet(time.Monday)}
	bookings := &stubBookings{bookings: []schedule.Booking{{Code: "BK-1"}}}

	snap := NewLoader(stubAvailability{a: avail, delay: 10 * time.Millisecond}, bookings, nil, discard()).Load(context.Background(), "doc-1", week)
	require.Same(t, avail, snap.Availability)
	require.Len(t, snap.Bookings, 1)
	require.Empty(t, snap.Warnings)
	require.Equal(t, week[0], bookings.from)
	require.Equal(t, week[6], bookings.to)
}

func TestLoader_FailuresAreIndependent(t *testing.T) {
	week := schedule.WeekDatesContaining(civil.Date{Year: 2026, Month: time.January, Day: 28})
	avail := &schedule.Availability{WorkingDays: schedule.NewWeekdaySet(time.Monday)}

	snap := NewLoader(stubAvailability{a: avail, delay: 10 * time.Millisecond}, &stubBookings{err: errors.New("timeout")}, nil, discard()).
		Load(context.Background(), "doc-1", week)
	require.Same(t, avail, snap.Availability, "a bookings failure must not cancel the availability fetch")
	require.Nil(t, snap.Bookings)
	require.Equal(t, []string{WarnBookings}, snap.Warnings)

	snap = NewLoader(stubAvailability{err: errors.New("db down")}, &stubBookings{bookings: []schedule.Booking{{Code: "BK-1"}}}, nil, discard()).
		Load(context.Background(), "doc-1", week)
	require.Nil(t, snap.Availability)
	require.Len(t, snap.Bookings, 1)
	require.Equal(t, []string{WarnAvailability}, snap.Warnings)
}

func TestBookingService_DropsMalformed(t *testing.T) {
	lister := listerFunc(func(context.Context, string, civil.Date, civil.Date) ([]model.BookingRecord, error) {
		return []model.BookingRecord{
			{Code: "ok", BookingDate: "2026-01-26", StartTime: "09:00", DurationMinutes: 30, Status: "pending"},
			{Code: "bad", BookingDate: "2026-01-26", DurationMinutes: 30},
		}, nil
	})
	from := civil.Date{Year: 2026, Month: time.January, Day: 26}
	got, err := NewBookingService(lister, discard()).GetBookingsForDoctor(context.Background(), "doc-1", from, from.AddDays(6))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, schedule.StatusPending, got[0].Status)
}

type listerFunc func(ctx context.Context, doctorID string, from, to civil.Date) ([]model.BookingRecord, error)

func (f listerFunc) ListForDoctor(ctx context.Context, doctorID string, from, to civil.Date) ([]model.BookingRecord, error) {
	return f(ctx, doctorID, from, to)
}
