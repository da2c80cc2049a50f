package schedule

import (
	"testing"
	"time"
)

func TestClassify_NoMatchFallback(t *testing.T) {
	a := &Availability{WorkingDays: NewWeekdaySet(time.Monday)}
	slot := *clock(t, "10:00")
	today := monday

	if c := Classify(a, nil, monday.AddDays(7), slot, today); c.State != CellAvailable {
		t.Fatalf("future working day: got %s", c.State)
	}
	if c := Classify(a, nil, monday.AddDays(8), slot, today); c.State != CellUnavailable {
		t.Fatalf("future non-working day: got %s", c.State)
	}
	if c := Classify(a, nil, monday.AddDays(-7), slot, today); c.State != CellPast {
		t.Fatalf("past working day: got %s", c.State)
	}
	if c := Classify(a, nil, monday.AddDays(-6), slot, today); c.State != CellPast {
		t.Fatalf("past non-working day: got %s", c.State)
	}
	if c := Classify(a, nil, today, *clock(t, "00:00"), today); c.State != CellAvailable {
		t.Fatalf("today is never past: got %s", c.State)
	}
	if c := Classify(nil, nil, monday.AddDays(7), slot, today); c.State != CellUnavailable {
		t.Fatalf("missing availability: got %s", c.State)
	}
}

func TestClassify_BookedWinsOverPast(t *testing.T) {
	bookings := []Booking{{Code: "old", Date: monday, StartTime: clock(t, "10:00"), DurationMinutes: 30, Status: StatusCancelled}}
	c := Classify(nil, bookings, monday, *clock(t, "10:00"), monday.AddDays(30))
	if c.State != CellBooked || c.Booking == nil || c.Booking.Code != "old" || c.Overlaps != 1 {
		t.Fatalf("unexpected cell %+v", c)
	}
	if style, ok := c.Style(); !ok || style != (Style{Tone: "danger", Icon: "x"}) {
		t.Fatalf("unexpected style %+v", style)
	}
}

func TestStyleFor(t *testing.T) {
	cases := map[Status]Style{
		StatusConfirmed: {Tone: "success", Icon: "check"},
		StatusPending:   {Tone: "warning", Icon: "clock"},
		StatusCancelled: {Tone: "danger", Icon: "x"},
		"rescheduled":   {Tone: "neutral", Icon: "default"},
	}
	for status, want := range cases {
		if got := StyleFor(status); got != want {
			t.Fatalf("%s: expected %+v, got %+v", status, want, got)
		}
	}
}

func TestBuildGrid_MondayWednesdayScenario(t *testing.T) {
	a := &Availability{
		WorkingDays: NewWeekdaySet(time.Monday, time.Wednesday),
		DailyStart:  clock(t, "08:00"),
		DailyEnd:    clock(t, "09:00"),
	}
	bookings := []Booking{{
		Code:            "BK-100",
		Date:            monday,
		StartTime:       clock(t, "08:30"),
		DurationMinutes: 30,
		Status:          StatusConfirmed,
		CustomerName:    "Ayesha Rahman",
		ServiceName:     "Consultation",
		Notes:           "first visit",
	}}
	today := monday.AddDays(-14)

	g := BuildGrid(a, bookings, monday.AddDays(3), today)
	if !g.Configured || len(g.Rows) != 3 {
		t.Fatalf("expected 3 configured rows, got %d (configured=%v)", len(g.Rows), g.Configured)
	}
	if g.Week[0] != monday {
		t.Fatalf("expected week to start %s, got %s", monday, g.Week[0])
	}

	state := func(day int, slot string) CellState {
		t.Helper()
		c, ok := g.Cell(monday.AddDays(day), *clock(t, slot))
		if !ok {
			t.Fatalf("missing cell day=%d slot=%s", day, slot)
		}
		return c.State
	}
	if got := state(0, "08:00"); got != CellAvailable {
		t.Fatalf("Monday 08:00: got %s", got)
	}
	if got := state(0, "08:30"); got != CellBooked {
		t.Fatalf("Monday 08:30: got %s", got)
	}
	if got := state(0, "09:00"); got != CellAvailable {
		t.Fatalf("Monday 09:00: got %s", got)
	}
	for _, slot := range []string{"08:00", "08:30", "09:00"} {
		if got := state(1, slot); got != CellUnavailable {
			t.Fatalf("Tuesday %s: got %s", slot, got)
		}
	}
	if got := state(2, "08:00"); got != CellAvailable {
		t.Fatalf("Wednesday 08:00: got %s", got)
	}

	d, ok := g.Select(monday, *clock(t, "08:30"))
	if !ok {
		t.Fatalf("expected booked cell to be selectable")
	}
	if d.BookingCode != "BK-100" || d.CustomerName != "Ayesha Rahman" || d.Status != StatusConfirmed || SlotLabel(d.StartTime) != "08:30" || d.BookingDate != monday {
		t.Fatalf("unexpected detail %+v", d)
	}
	if _, ok := g.Select(monday, *clock(t, "08:00")); ok {
		t.Fatalf("available cell should not be selectable")
	}

	counts := g.Counts()
	if counts[CellBooked] != 1 || counts[CellAvailable] != 5 || counts[CellUnavailable] != 15 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestBuildGrid_NotConfigured(t *testing.T) {
	bookings := []Booking{{Code: "BK", Date: monday, StartTime: clock(t, "09:00"), DurationMinutes: 30}}
	g := BuildGrid(&Availability{WorkingDays: NewWeekdaySet(time.Monday)}, bookings, monday, monday)
	if g.Configured || len(g.Rows) != 0 || len(g.Slots) != 0 {
		t.Fatalf("expected empty unconfigured grid, got %+v", g)
	}
	if g.Week[0] != monday {
		t.Fatalf("week should still be computed")
	}
	if _, ok := g.Select(monday, *clock(t, "09:00")); ok {
		t.Fatalf("nothing is selectable without rows")
	}

	if g := BuildGrid(nil, nil, monday, monday); g.Configured {
		t.Fatalf("nil availability should not be configured")
	}
}
