package schedule

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

type Direction int

const (
	Previous Direction = -1
	Next     Direction = 1
)

func ParseDirection(raw string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "previous", "prev":
		return Previous, true
	case "next":
		return Next, true
	default:
		return 0, false
	}
}

// View is the grid's navigation state. Methods return a new View and never mutate the receiver.
type View struct {
	DoctorID  string
	Reference civil.Date
}

func NewView(doctorID string, now time.Time) View {
	return View{DoctorID: doctorID, Reference: civil.DateOf(now)}
}

// Navigate moves the reference one week back or forward.
func (v View) Navigate(dir Direction) View {
	switch dir {
	case Previous, Next:
		v.Reference = v.Reference.AddDays(7 * int(dir))
	}
	return v
}

// Today jumps to the calendar date of now in now's location.
func (v View) Today(now time.Time) View {
	v.Reference = civil.DateOf(now)
	return v
}

// JumpTo replaces the reference date; a zero or invalid date leaves the view unchanged.
func (v View) JumpTo(d civil.Date) View {
	if !d.IsValid() {
		return v
	}
	v.Reference = d
	return v
}

func (v View) Week() [7]civil.Date {
	return WeekDatesContaining(v.Reference)
}
