package slots

import (
	"reflect"
	"testing"

	"github.com/slotline/scheduling/internal/model"
)

func minutes(clocks ...string) []int {
	out := make([]int, 0, len(clocks))
	for _, c := range clocks {
		m, err := model.ParseClock(c)
		if err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}

func workday(start, end string, breakStart, breakEnd string) model.DayAvailability {
	s, _ := model.ParseClock(start)
	e, _ := model.ParseClock(end)
	avail := model.DayAvailability{
		Weekday:     1,
		IsActive:    true,
		StartMinute: s,
		EndMinute:   e,
		LocationID:  "L1",
	}
	if breakStart != "" {
		bs, _ := model.ParseClock(breakStart)
		be, _ := model.ParseClock(breakEnd)
		avail.BreakStart = &bs
		avail.BreakEnd = &be
	}
	return avail
}

func TestGenerate_FullDayWithBreak(t *testing.T) {
	// Monday 09:00-18:00, break 12:00-13:00, 30-minute service.
	got := Generate(workday("09:00", "18:00", "12:00", "13:00"), false, nil, 30)

	want := minutes(
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30",
		"16:00", "16:30", "17:00", "17:30",
	)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected slots:\n got %v\nwant %v", got, want)
	}
}

func TestGenerate_DurationFitsExactlyAtClose(t *testing.T) {
	got := Generate(workday("17:00", "18:00", "", ""), false, nil, 30)
	want := minutes("17:00", "17:30") // 17:30+30 == 18:00 still fits; 18:00 itself never offered
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerate_LongDurationSkipsTightCandidates(t *testing.T) {
	got := Generate(workday("09:00", "10:30", "", ""), false, nil, 60)
	want := minutes("09:00", "09:30")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerate_DayClosedShortCircuits(t *testing.T) {
	if got := Generate(workday("09:00", "18:00", "", ""), true, nil, 30); got != nil {
		t.Fatalf("expected no slots on a closed day, got %v", got)
	}
}

func TestGenerate_InactiveDay(t *testing.T) {
	avail := workday("09:00", "18:00", "", "")
	avail.IsActive = false
	if got := Generate(avail, false, nil, 30); got != nil {
		t.Fatalf("expected no slots for an inactive day, got %v", got)
	}
}

func TestGenerate_BusyIntervalExcluded(t *testing.T) {
	// A blocked range 09:00-10:00 removes 09:00 and 09:30 but not 10:00.
	busy := []Interval{{Start: 540, End: 600}}
	got := Generate(workday("09:00", "11:00", "", ""), false, busy, 30)
	want := minutes("10:00", "10:30")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerate_OverlapNotJustExactStart(t *testing.T) {
	// A 60-minute booking at 09:30 must also knock out the 10:00 candidate
	// for a 60-minute request, and the 09:00 candidate too.
	busy := []Interval{{Start: 570, End: 630}}
	got := Generate(workday("09:00", "12:00", "", ""), false, busy, 60)
	want := minutes("10:30", "11:00")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	avail := workday("09:00", "18:00", "12:00", "13:00")
	busy := []Interval{{Start: 600, End: 630}}
	first := Generate(avail, false, busy, 30)
	second := Generate(avail, false, busy, 30)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated generation differs: %v vs %v", first, second)
	}
}

func TestBusyIntervals(t *testing.T) {
	appts := []model.Appointment{
		{Kind: model.KindBooking, Status: model.StatusConfirmed, StartMinute: 540, DurationMinutes: 30},
		{Kind: model.KindBooking, Status: model.StatusCancelled, StartMinute: 600, DurationMinutes: 30},
		{Kind: model.KindRangeBlock, Status: model.StatusBlocked, StartMinute: 660, DurationMinutes: 30},
		{Kind: model.KindDayClosure, Status: model.StatusBlocked, StartMinute: 0, DurationMinutes: 0},
		{Kind: model.KindBooking, Status: model.StatusConfirmed, SqueezeIn: true, StartMinute: 720, DurationMinutes: 30},
	}
	got := BusyIntervals(appts)
	want := []Interval{{540, 570}, {660, 690}, {720, 750}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGroupBoundaries(t *testing.T) {
	g := Group(minutes("09:00", "11:30", "12:00", "17:30", "18:00", "19:00"))
	wantMorning := []string{"09:00", "11:30"}
	wantAfternoon := []string{"12:00", "17:30"}
	wantEvening := []string{"18:00", "19:00"}
	if !reflect.DeepEqual(g.Morning, wantMorning) {
		t.Errorf("morning = %v, want %v", g.Morning, wantMorning)
	}
	if !reflect.DeepEqual(g.Afternoon, wantAfternoon) {
		t.Errorf("afternoon = %v, want %v", g.Afternoon, wantAfternoon)
	}
	if !reflect.DeepEqual(g.Evening, wantEvening) {
		t.Errorf("evening = %v, want %v", g.Evening, wantEvening)
	}
}
