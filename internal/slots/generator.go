// Package slots computes open appointment start times for one provider-day.
// It is a pure function of the resolved availability and the day's busy
// intervals so it can be tested in isolation from storage.
package slots

import (
	"github.com/slotline/scheduling/internal/model"
)

// Interval is a half-open busy range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Generate returns candidate start minutes in ascending order, walking the
// fixed 30-minute grid from the start of the working window.
//
// A candidate is open iff the service fits before the end of the window, the
// candidate does not start inside the break, and [c, c+duration) overlaps no
// busy interval. A closed day yields nothing regardless of the template.
func Generate(avail model.DayAvailability, dayClosed bool, busy []Interval, durationMinutes int) []int {
	if dayClosed || !avail.IsActive || durationMinutes <= 0 {
		return nil
	}

	var out []int
	for c := avail.StartMinute; c+durationMinutes <= avail.EndMinute; c += model.SlotStepMinutes {
		if avail.BreakStart != nil && avail.BreakEnd != nil &&
			c >= *avail.BreakStart && c < *avail.BreakEnd {
			continue
		}
		if overlapsAny(c, c+durationMinutes, busy) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func overlapsAny(start, end int, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start < b.End && b.Start < end {
			return true
		}
	}
	return false
}

// BusyIntervals extracts the intervals occupied by the given rows, skipping
// cancelled rows and day closures. Squeeze-ins still occupy provider time, so
// they count here even though they bypass the conflict check at create time.
func BusyIntervals(appts []model.Appointment) []Interval {
	out := make([]Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Blocks() {
			continue
		}
		out = append(out, Interval{Start: a.StartMinute, End: a.EndMinute()})
	}
	return out
}
