package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/outbox"
)

type fakeWaitlistStore struct {
	entries map[string]model.WaitingListEntry
	order   []string
	matches []model.WaitlistMatch
	events  []outbox.Event
}

func newFakeWaitlistStore() *fakeWaitlistStore {
	return &fakeWaitlistStore{entries: map[string]model.WaitingListEntry{}}
}

func (f *fakeWaitlistStore) Insert(_ context.Context, entry model.WaitingListEntry) error {
	f.entries[entry.ID] = entry
	f.order = append(f.order, entry.ID)
	return nil
}

func (f *fakeWaitlistStore) Get(_ context.Context, id string) (model.WaitingListEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return model.WaitingListEntry{}, fmt.Errorf("%w: waitlist entry %s", model.ErrNotFound, id)
	}
	return entry, nil
}

func (f *fakeWaitlistStore) SetStatus(_ context.Context, id string, from, to model.WaitlistStatus, notified bool, evts ...outbox.Event) error {
	entry, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("%w: waitlist entry %s", model.ErrNotFound, id)
	}
	if entry.Status != from {
		return fmt.Errorf("%w: status changed concurrently", model.ErrConflict)
	}
	entry.Status = to
	entry.Notified = notified
	f.entries[id] = entry
	f.events = append(f.events, evts...)
	return nil
}

func (f *fakeWaitlistStore) ListWaiting(_ context.Context, date string) ([]model.WaitingListEntry, error) {
	var out []model.WaitingListEntry
	for _, id := range f.order {
		entry := f.entries[id]
		if entry.Date == date && entry.Status == model.WaitlistWaiting {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeWaitlistStore) InsertMatches(_ context.Context, matches []model.WaitlistMatch) error {
	f.matches = append(f.matches, matches...)
	return nil
}

func (f *fakeWaitlistStore) ListMatches(_ context.Context, date string) ([]model.WaitlistMatch, error) {
	var out []model.WaitlistMatch
	for _, m := range f.matches {
		if m.Date == date {
			out = append(out, m)
		}
	}
	return out, nil
}

const waitDay = "2026-03-02"

func addEntry(t *testing.T, svc *Service, in AddInput) model.WaitingListEntry {
	t.Helper()
	if in.Date == "" {
		in.Date = waitDay
	}
	entry, err := svc.Add(context.Background(), in)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return entry
}

func TestAdd_And_ListForDate(t *testing.T) {
	svc := NewService(newFakeWaitlistStore(), slog.Default())
	addEntry(t, svc, AddInput{ClientID: "c1"})
	addEntry(t, svc, AddInput{ClientID: "c2", Date: "2026-03-03"})

	got, err := svc.ListForDate(context.Background(), waitDay)
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}
	if len(got) != 1 || got[0].ClientID != "c1" {
		t.Fatalf("expected only c1 for %s, got %+v", waitDay, got)
	}
}

func TestAdd_Validation(t *testing.T) {
	svc := NewService(newFakeWaitlistStore(), slog.Default())
	if _, err := svc.Add(context.Background(), AddInput{Date: waitDay}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation without client, got %v", err)
	}
}

func TestMarkNotified_EmitsEvent(t *testing.T) {
	store := newFakeWaitlistStore()
	svc := NewService(store, slog.Default())
	entry := addEntry(t, svc, AddInput{ClientID: "c1"})

	if err := svc.MarkNotified(context.Background(), entry.ID); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	got, _ := store.Get(context.Background(), entry.ID)
	if got.Status != model.WaitlistNotified || !got.Notified {
		t.Fatalf("expected NOTIFIED entry, got %+v", got)
	}
	if len(store.events) != 1 || store.events[0].EventType != outbox.EventWaitlistNotify {
		t.Fatalf("expected notify event, got %+v", store.events)
	}

	// Notifying twice is an invalid transition, not a second event.
	if err := svc.MarkNotified(context.Background(), entry.ID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected no extra event, got %d", len(store.events))
	}
}

func TestResolve(t *testing.T) {
	svc := NewService(newFakeWaitlistStore(), slog.Default())
	entry := addEntry(t, svc, AddInput{ClientID: "c1"})
	ctx := context.Background()

	if err := svc.Resolve(ctx, entry.ID, model.WaitlistDone); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for WAITING -> DONE, got %v", err)
	}
	if err := svc.MarkNotified(ctx, entry.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Resolve(ctx, entry.ID, model.WaitlistDone); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
}

func TestHandleCancellation_MatchesCompatibleEntries(t *testing.T) {
	store := newFakeWaitlistStore()
	svc := NewService(store, slog.Default())
	ctx := context.Background()

	any := addEntry(t, svc, AddInput{ClientID: "c1"})
	sameProvider := addEntry(t, svc, AddInput{ClientID: "c2", ProviderID: "p1"})
	otherProvider := addEntry(t, svc, AddInput{ClientID: "c3", ProviderID: "p2"})
	otherService := addEntry(t, svc, AddInput{ClientID: "c4", ServiceID: "svc-other"})
	addEntry(t, svc, AddInput{ClientID: "c5", Date: "2026-03-03"})

	err := svc.HandleCancellation(ctx, CancelledAppointment{
		AppointmentID: "a1",
		ProviderID:    "p1",
		ServiceID:     "svc",
		Date:          waitDay,
		Time:          "09:30",
	})
	if err != nil {
		t.Fatalf("HandleCancellation: %v", err)
	}

	matches, err := svc.ListMatches(ctx, waitDay)
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	matched := map[string]bool{}
	for _, m := range matches {
		matched[m.EntryID] = true
		if m.FreedStartMinute != 570 {
			t.Fatalf("expected freed minute 570, got %d", m.FreedStartMinute)
		}
		if m.AppointmentID != "a1" {
			t.Fatalf("expected appointment a1, got %s", m.AppointmentID)
		}
	}
	if !matched[any.ID] || !matched[sameProvider.ID] {
		t.Fatalf("expected the unconstrained and same-provider entries to match, got %v", matched)
	}
	if matched[otherProvider.ID] || matched[otherService.ID] {
		t.Fatal("incompatible entries must not match")
	}

	// Entries stay WAITING: matching never books or notifies by itself.
	got, _ := store.Get(ctx, any.ID)
	if got.Status != model.WaitlistWaiting {
		t.Fatalf("expected entry to remain WAITING, got %s", got.Status)
	}
}

func TestHandleCancellation_NoWaiters(t *testing.T) {
	store := newFakeWaitlistStore()
	svc := NewService(store, slog.Default())

	err := svc.HandleCancellation(context.Background(), CancelledAppointment{
		AppointmentID: "a1", ProviderID: "p1", ServiceID: "svc", Date: waitDay, Time: "10:00",
	})
	if err != nil {
		t.Fatalf("HandleCancellation: %v", err)
	}
	if len(store.matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(store.matches))
	}
}
