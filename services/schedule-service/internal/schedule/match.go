package schedule

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus lowercases known statuses; anything else is kept as an "other" status.
func ParseStatus(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return s
	case "canceled":
		return StatusCancelled
	}
	return Status(strings.TrimSpace(raw))
}

// Booking is an appointment occupying [Date+StartTime, Date+StartTime+DurationMinutes).
type Booking struct {
	Code            string
	Date            civil.Date
	StartTime       *civil.Time
	DurationMinutes int
	Status          Status
	CustomerName    string
	ServiceName     string
	Notes           string
}

// Interval resolves the occupied wall-clock interval. ok is false without a start time
// or a positive duration.
func (b Booking) Interval() (start, end time.Time, ok bool) {
	if b.StartTime == nil || b.DurationMinutes <= 0 || !b.Date.IsValid() {
		return time.Time{}, time.Time{}, false
	}
	start = civil.DateTime{Date: b.Date, Time: *b.StartTime}.In(time.UTC)
	return start, start.Add(time.Duration(b.DurationMinutes) * time.Minute), true
}

// Covers reports whether the slot on date falls inside the booking's half-open interval.
func (b Booking) Covers(date civil.Date, slot civil.Time) bool {
	if b.Date != date {
		return false
	}
	start, end, ok := b.Interval()
	if !ok {
		return false
	}
	at := civil.DateTime{Date: date, Time: slot}.In(time.UTC)
	return !at.Before(start) && at.Before(end)
}

// FindBookingForSlot returns the first booking, in input order, covering the cell.
func FindBookingForSlot(bookings []Booking, date civil.Date, slot civil.Time) (Booking, bool) {
	for _, b := range bookings {
		if b.Covers(date, slot) {
			return b, true
		}
	}
	return Booking{}, false
}

// BookingsForSlot returns every booking covering the cell, in input order.
func BookingsForSlot(bookings []Booking, date civil.Date, slot civil.Time) []Booking {
	var out []Booking
	for _, b := range bookings {
		if b.Covers(date, slot) {
			out = append(out, b)
		}
	}
	return out
}
