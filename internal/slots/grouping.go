package slots

import "github.com/slotline/scheduling/internal/model"

// DayPart is the presentation bucket a slot belongs to. The boundaries are
// part of the external contract: Morning before 12:00, Afternoon from 12:00
// up to 18:00, Evening from 18:00.
type DayPart string

const (
	Morning   DayPart = "morning"
	Afternoon DayPart = "afternoon"
	Evening   DayPart = "evening"
)

func PartOf(minute int) DayPart {
	switch {
	case minute < 12*60:
		return Morning
	case minute < 18*60:
		return Afternoon
	default:
		return Evening
	}
}

// Grouped holds the formatted slot times split by day part, in ascending order.
type Grouped struct {
	Morning   []string `json:"morning"`
	Afternoon []string `json:"afternoon"`
	Evening   []string `json:"evening"`
}

func Group(minutes []int) Grouped {
	var g Grouped
	for _, m := range minutes {
		clock := model.FormatClock(m)
		switch PartOf(m) {
		case Morning:
			g.Morning = append(g.Morning, clock)
		case Afternoon:
			g.Afternoon = append(g.Afternoon, clock)
		default:
			g.Evening = append(g.Evening, clock)
		}
	}
	return g
}
