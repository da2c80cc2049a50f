package schedule

import (
	"cloud.google.com/go/civil"
)

type CellState string

const (
	CellBooked      CellState = "booked"
	CellPast        CellState = "past"
	CellAvailable   CellState = "available"
	CellUnavailable CellState = "unavailable"
)

// Style is the presentation hint for a booked cell.
type Style struct {
	Tone string
	Icon string
}

func StyleFor(status Status) Style {
	switch status {
	case StatusConfirmed:
		return Style{Tone: "success", Icon: "check"}
	case StatusPending:
		return Style{Tone: "warning", Icon: "clock"}
	case StatusCancelled:
		return Style{Tone: "danger", Icon: "x"}
	default:
		return Style{Tone: "neutral", Icon: "default"}
	}
}

type Cell struct {
	Date    civil.Date
	Slot    civil.Time
	State   CellState
	Booking *Booking
	// Overlaps counts every booking covering the cell; more than one means conflicting data.
	Overlaps int
}

// Style is only meaningful on booked cells.
func (c Cell) Style() (Style, bool) {
	if c.State != CellBooked || c.Booking == nil {
		return Style{}, false
	}
	return StyleFor(c.Booking.Status), true
}

// Classify evaluates booked, past, available, unavailable in that order.
// Today is never past regardless of the slot time.
func Classify(a *Availability, bookings []Booking, date civil.Date, slot civil.Time, today civil.Date) Cell {
	cell := Cell{Date: date, Slot: slot}
	if matches := BookingsForSlot(bookings, date, slot); len(matches) > 0 {
		first := matches[0]
		cell.State = CellBooked
		cell.Booking = &first
		cell.Overlaps = len(matches)
		return cell
	}
	switch {
	case date.Before(today):
		cell.State = CellPast
	case a.WorksOn(date):
		cell.State = CellAvailable
	default:
		cell.State = CellUnavailable
	}
	return cell
}

// Grid is the week table: one row per slot, one column per day Monday..Sunday.
type Grid struct {
	Week       [7]civil.Date
	Slots      []civil.Time
	Rows       [][7]Cell
	Configured bool
}

// BuildGrid renders the week holding ref. Without a working window the grid has no rows
// and Configured is false.
func BuildGrid(a *Availability, bookings []Booking, ref, today civil.Date) Grid {
	g := Grid{Week: WeekDatesContaining(ref)}
	g.Slots = a.Slots()
	g.Configured = len(g.Slots) > 0
	if !g.Configured {
		return g
	}

	g.Rows = make([][7]Cell, len(g.Slots))
	for i, slot := range g.Slots {
		for j, date := range g.Week {
			g.Rows[i][j] = Classify(a, bookings, date, slot, today)
		}
	}
	return g
}

func (g Grid) Cell(date civil.Date, slot civil.Time) (Cell, bool) {
	col := -1
	for j, d := range g.Week {
		if d == date {
			col = j
			break
		}
	}
	if col < 0 {
		return Cell{}, false
	}
	for i, s := range g.Slots {
		if s == slot {
			return g.Rows[i][col], true
		}
	}
	return Cell{}, false
}

// Detail is the read-only view of a selected booking.
type Detail struct {
	BookingCode  string
	CustomerName string
	ServiceName  string
	BookingDate  civil.Date
	StartTime    civil.Time
	Status       Status
	Notes        string
}

func DetailOf(b Booking) Detail {
	d := Detail{
		BookingCode:  b.Code,
		CustomerName: b.CustomerName,
		ServiceName:  b.ServiceName,
		BookingDate:  b.Date,
		Status:       b.Status,
		Notes:        b.Notes,
	}
	if b.StartTime != nil {
		d.StartTime = *b.StartTime
	}
	return d
}

// Select returns the booking detail of a booked cell.
func (g Grid) Select(date civil.Date, slot civil.Time) (Detail, bool) {
	cell, ok := g.Cell(date, slot)
	if !ok || cell.State != CellBooked || cell.Booking == nil {
		return Detail{}, false
	}
	return DetailOf(*cell.Booking), true
}

func (g Grid) Counts() map[CellState]int {
	counts := make(map[CellState]int, 4)
	for _, row := range g.Rows {
		for _, c := range row {
			counts[c.State]++
		}
	}
	return counts
}
