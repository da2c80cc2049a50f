package model

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/schedule"
)

// AvailabilityRecord is a doctor's schedule as stored or received, before validation.
// Empty strings mean unset.
type AvailabilityRecord struct {
	DoctorID    string
	WorkingDays []string
	DailyStart  string
	DailyEnd    string
	ValidFrom   string
	ValidTo     string
	UpdatedAt   time.Time
}

// BookingRecord is a projected appointment row. DurationMinutes of 0 means unknown.
type BookingRecord struct {
	Code            string
	DoctorID        string
	BookingDate     string
	StartTime       string
	DurationMinutes int
	Status          string
	CustomerName    string
	ServiceName     string
	Notes           string
	UpdatedAt       time.Time
}

// NormalizeAvailability converts a record into the strict model. Fields that do not parse
// are left unset and reported as problems.
func NormalizeAvailability(rec AvailabilityRecord) (schedule.Availability, []string) {
	var (
		a        schedule.Availability
		problems []string
	)

	days, invalid := schedule.ParseWeekdaySet(rec.WorkingDays)
	a.WorkingDays = days
	for _, name := range invalid {
		problems = append(problems, "unknown weekday "+quote(name))
	}

	start, ok := optionalClock(rec.DailyStart)
	if !ok {
		problems = append(problems, "invalid daily_start "+quote(rec.DailyStart))
	}
	end, ok := optionalClock(rec.DailyEnd)
	if !ok {
		problems = append(problems, "invalid daily_end "+quote(rec.DailyEnd))
	}
	if start != nil && end != nil && end.Before(*start) {
		problems = append(problems, "daily_end before daily_start")
	}
	a.DailyStart, a.DailyEnd = start, end

	from, ok := optionalDate(rec.ValidFrom)
	if !ok {
		problems = append(problems, "invalid valid_from "+quote(rec.ValidFrom))
	}
	to, ok := optionalDate(rec.ValidTo)
	if !ok {
		problems = append(problems, "invalid valid_to "+quote(rec.ValidTo))
	}
	a.ValidFrom, a.ValidTo = from, to

	return a, problems
}

// NormalizeBooking returns ok=false for rows the matcher could never place: no valid date,
// no start time, or no positive duration.
func NormalizeBooking(rec BookingRecord) (schedule.Booking, bool) {
	date, err := civil.ParseDate(strings.TrimSpace(rec.BookingDate))
	if err != nil {
		return schedule.Booking{}, false
	}
	start, ok := optionalClock(rec.StartTime)
	if !ok || start == nil || rec.DurationMinutes <= 0 {
		return schedule.Booking{}, false
	}
	return schedule.Booking{
		Code:            rec.Code,
		Date:            date,
		StartTime:       start,
		DurationMinutes: rec.DurationMinutes,
		Status:          schedule.ParseStatus(rec.Status),
		CustomerName:    rec.CustomerName,
		ServiceName:     rec.ServiceName,
		Notes:           rec.Notes,
	}, true
}

// NormalizeBookings drops malformed rows and reports how many were dropped.
func NormalizeBookings(recs []BookingRecord) ([]schedule.Booking, int) {
	out := make([]schedule.Booking, 0, len(recs))
	dropped := 0
	for _, rec := range recs {
		b, ok := NormalizeBooking(rec)
		if !ok {
			dropped++
			continue
		}
		out = append(out, b)
	}
	return out, dropped
}

// RecordOf is the inverse of NormalizeAvailability for persistence.
func RecordOf(doctorID string, a schedule.Availability) AvailabilityRecord {
	rec := AvailabilityRecord{
		DoctorID:    doctorID,
		WorkingDays: a.WorkingDays.Names(),
	}
	if a.DailyStart != nil {
		rec.DailyStart = schedule.SlotLabel(*a.DailyStart)
	}
	if a.DailyEnd != nil {
		rec.DailyEnd = schedule.SlotLabel(*a.DailyEnd)
	}
	if a.ValidFrom != nil {
		rec.ValidFrom = a.ValidFrom.String()
	}
	if a.ValidTo != nil {
		rec.ValidTo = a.ValidTo.String()
	}
	return rec
}

// optionalClock returns nil for blank input; ok is false only for non-blank garbage.
func optionalClock(raw string) (*civil.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	t, err := schedule.ParseClock(raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func optionalDate(raw string) (*civil.Date, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return nil, false
	}
	return &d, true
}

func quote(s string) string { return `"` + s + `"` }
