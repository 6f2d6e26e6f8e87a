package schedule

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/slotline/scheduling/internal/model"
)

type fakeStore struct {
	weeks map[string][]model.DayAvailability
}

func (f *fakeStore) GetWeek(_ context.Context, providerID string) ([]model.DayAvailability, error) {
	week, ok := f.weeks[providerID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return week, nil
}

func (f *fakeStore) UpsertDay(_ context.Context, providerID string, day model.DayAvailability) error {
	if f.weeks == nil {
		f.weeks = map[string][]model.DayAvailability{}
	}
	week := f.weeks[providerID]
	for i := range week {
		if week[i].Weekday == day.Weekday {
			week[i] = day
			f.weeks[providerID] = week
			return nil
		}
	}
	f.weeks[providerID] = append(week, day)
	return nil
}

type fakeLocations struct {
	first  string
	active map[string]bool
}

func (f *fakeLocations) FirstActiveLocation(context.Context) (string, error) {
	if f.first == "" {
		return "", model.ErrNotFound
	}
	return f.first, nil
}

func (f *fakeLocations) LocationActive(_ context.Context, id string) (bool, error) {
	return f.active[id], nil
}

func newService(store *fakeStore, locs *fakeLocations) *Service {
	return NewService(store, locs, slog.Default())
}

func ptr(v int) *int { return &v }

func TestResolve_ActiveDay(t *testing.T) {
	store := &fakeStore{weeks: map[string][]model.DayAvailability{
		"p1": {
			{Weekday: 1, IsActive: true, StartMinute: 540, EndMinute: 1080, LocationID: "L1"},
			{Weekday: 2, IsActive: false},
		},
	}}
	svc := newService(store, &fakeLocations{})

	// 2026-03-02 is a Monday.
	day, ok, err := svc.Resolve(context.Background(), "p1", "2026-03-02")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ok {
		t.Fatal("expected provider to be active on Monday")
	}
	if day.StartMinute != 540 || day.EndMinute != 1080 {
		t.Fatalf("unexpected window: %+v", day)
	}
}

func TestResolve_InactiveDay(t *testing.T) {
	store := &fakeStore{weeks: map[string][]model.DayAvailability{
		"p1": {{Weekday: 2, IsActive: false}},
	}}
	svc := newService(store, &fakeLocations{})

	// 2026-03-03 is a Tuesday.
	_, ok, err := svc.Resolve(context.Background(), "p1", "2026-03-03")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Fatal("expected inactive day")
	}
}

func TestResolve_MissingWeekdayEntry(t *testing.T) {
	store := &fakeStore{weeks: map[string][]model.DayAvailability{"p1": {}}}
	svc := newService(store, &fakeLocations{})
	_, ok, err := svc.Resolve(context.Background(), "p1", "2026-03-02")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Fatal("expected missing entry to resolve as inactive")
	}
}

func TestResolve_UnknownProvider(t *testing.T) {
	svc := newService(&fakeStore{}, &fakeLocations{})
	_, _, err := svc.Resolve(context.Background(), "nope", "2026-03-02")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEditDay_AutoAssignsLocation(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeLocations{first: "L1"})

	day, err := svc.EditDay(context.Background(), "p1", model.DayAvailability{
		Weekday: 1, IsActive: true, StartMinute: 540, EndMinute: 1080,
	})
	if err != nil {
		t.Fatalf("EditDay: %v", err)
	}
	if day.LocationID != "L1" {
		t.Fatalf("expected auto-assigned location L1, got %q", day.LocationID)
	}
}

func TestEditDay_ClearingBreakStartClearsBreakEnd(t *testing.T) {
	svc := newService(&fakeStore{}, &fakeLocations{active: map[string]bool{"L1": true}})

	day, err := svc.EditDay(context.Background(), "p1", model.DayAvailability{
		Weekday: 1, IsActive: true, StartMinute: 540, EndMinute: 1080,
		BreakStart: nil, BreakEnd: ptr(780), LocationID: "L1",
	})
	if err != nil {
		t.Fatalf("EditDay: %v", err)
	}
	if day.BreakEnd != nil {
		t.Fatal("expected break end to be cleared with break start")
	}
}

func TestEditDay_Validation(t *testing.T) {
	svc := newService(&fakeStore{}, &fakeLocations{active: map[string]bool{"L1": true}})

	cases := []model.DayAvailability{
		{Weekday: 7, IsActive: true, StartMinute: 540, EndMinute: 1080, LocationID: "L1"},
		{Weekday: 1, IsActive: true, StartMinute: 1080, EndMinute: 540, LocationID: "L1"},
		{Weekday: 1, IsActive: true, StartMinute: 540, EndMinute: 1080, BreakStart: ptr(780), BreakEnd: ptr(720), LocationID: "L1"},
		{Weekday: 1, IsActive: true, StartMinute: 540, EndMinute: 1080, BreakStart: ptr(480), BreakEnd: ptr(720), LocationID: "L1"},
		{Weekday: 1, IsActive: true, StartMinute: 540, EndMinute: 1080, LocationID: "L-inactive"},
	}
	for i, day := range cases {
		if _, err := svc.EditDay(context.Background(), "p1", day); !errors.Is(err, model.ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestEditDay_DeactivateStripsWindow(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeLocations{first: "L1"})

	day, err := svc.EditDay(context.Background(), "p1", model.DayAvailability{
		Weekday: 3, IsActive: false, StartMinute: 540, EndMinute: 1080,
		BreakStart: ptr(720), BreakEnd: ptr(780), LocationID: "L1",
	})
	if err != nil {
		t.Fatalf("EditDay: %v", err)
	}
	if day.StartMinute != 0 || day.EndMinute != 0 || day.BreakStart != nil || day.LocationID != "" {
		t.Fatalf("expected deactivated day to be stripped, got %+v", day)
	}
}
