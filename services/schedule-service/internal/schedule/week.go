package schedule

import (
	"time"

	"cloud.google.com/go/civil"
)

func weekdayOf(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// MondayOf returns the Monday of the week holding ref. Sunday belongs to the week that
// started six days earlier.
func MondayOf(ref civil.Date) civil.Date {
	wd := int(weekdayOf(ref))
	offset := 1 - wd
	if wd == int(time.Sunday) {
		offset = -6
	}
	return ref.AddDays(offset)
}

// WeekDatesContaining returns Monday..Sunday of the week holding ref.
func WeekDatesContaining(ref civil.Date) [7]civil.Date {
	var week [7]civil.Date
	monday := MondayOf(ref)
	for i := range week {
		week[i] = monday.AddDays(i)
	}
	return week
}
