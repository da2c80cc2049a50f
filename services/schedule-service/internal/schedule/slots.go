package schedule

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const SlotInterval = 30 * time.Minute

const secondsPerDay = 24 * 60 * 60

// ParseClock reads "HH:MM" or "HH:MM:SS" on a 24h clock.
func ParseClock(raw string) (civil.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return civil.TimeOf(t), nil
		}
	}
	return civil.Time{}, fmt.Errorf("invalid time of day %q", raw)
}

// GenerateSlots emits start, start+30m, ... while the cursor is <= end.
// The end itself is emitted when it falls on the grid. The cursor never wraps past midnight.
func GenerateSlots(start, end *civil.Time) []civil.Time {
	if start == nil || end == nil || !start.IsValid() || !end.IsValid() {
		return nil
	}
	from, to := secondOfDay(*start), secondOfDay(*end)
	step := int(SlotInterval / time.Second)

	var slots []civil.Time
	for cur := from; cur <= to && cur < secondsPerDay; cur += step {
		slots = append(slots, timeOfSecond(cur))
	}
	return slots
}

// SlotsBetween is GenerateSlots over clock strings; blank or unparseable input yields nothing.
func SlotsBetween(start, end string) []civil.Time {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil
	}
	s, err := ParseClock(start)
	if err != nil {
		return nil
	}
	e, err := ParseClock(end)
	if err != nil {
		return nil
	}
	return GenerateSlots(&s, &e)
}

// SlotLabel formats a slot as zero padded HH:MM.
func SlotLabel(t civil.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func SlotLabels(slots []civil.Time) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotLabel(s))
	}
	return out
}

func secondOfDay(t civil.Time) int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

func timeOfSecond(s int) civil.Time {
	return civil.Time{Hour: s / 3600, Minute: s % 3600 / 60, Second: s % 60}
}
