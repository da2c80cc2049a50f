package schedule

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// WeekdaySet is a bit set of time.Weekday values.
type WeekdaySet uint8

// weekOrder is the display order of a week, Monday first.
var weekOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<uint(d)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool { return s == 0 }

// Days lists the members Monday first.
func (s WeekdaySet) Days() []time.Weekday {
	var out []time.Weekday
	for _, d := range weekOrder {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// Names returns lowercase weekday names Monday first.
func (s WeekdaySet) Names() []string {
	days := s.Days()
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, strings.ToLower(d.String()))
	}
	return out
}

// ParseWeekday accepts full or three-letter English names in any case.
func ParseWeekday(name string) (time.Weekday, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) < 3 {
		return 0, false
	}
	for _, d := range weekOrder {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, true
		}
	}
	return 0, false
}

// ParseWeekdaySet collapses duplicates and returns the names it could not parse.
func ParseWeekdaySet(names []string) (WeekdaySet, []string) {
	var (
		set     WeekdaySet
		invalid []string
	)
	for _, name := range names {
		d, ok := ParseWeekday(name)
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		set = set.With(d)
	}
	return set, invalid
}

// Availability is a doctor's recurring weekly schedule.
// Nil times mean unset; an unset or reversed window produces no slots.
type Availability struct {
	WorkingDays WeekdaySet
	DailyStart  *civil.Time
	DailyEnd    *civil.Time
	ValidFrom   *civil.Date
	ValidTo     *civil.Date
}

// IsWorkingDay reports whether the named weekday is in the working set.
func (a *Availability) IsWorkingDay(weekdayName string) bool {
	if a == nil || a.WorkingDays.Empty() {
		return false
	}
	d, ok := ParseWeekday(weekdayName)
	return ok && a.WorkingDays.Has(d)
}

// WorksOn checks weekday membership and the optional validity range, both bounds inclusive.
func (a *Availability) WorksOn(d civil.Date) bool {
	if a == nil || !d.IsValid() {
		return false
	}
	if !a.WorkingDays.Has(weekdayOf(d)) {
		return false
	}
	if a.ValidFrom != nil && d.Before(*a.ValidFrom) {
		return false
	}
	if a.ValidTo != nil && d.After(*a.ValidTo) {
		return false
	}
	return true
}

// Slots derives the daily slot labels from the working window.
func (a *Availability) Slots() []civil.Time {
	if a == nil {
		return nil
	}
	return GenerateSlots(a.DailyStart, a.DailyEnd)
}

// Configured reports whether the window yields at least one slot.
func (a *Availability) Configured() bool {
	return len(a.Slots()) > 0
}
