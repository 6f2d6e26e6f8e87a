package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"testing"

	"github.com/slotline/scheduling/internal/model"
)

type fakeQueueStore struct {
	entries  map[string]model.QueueEntry
	counters map[string]int
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{entries: map[string]model.QueueEntry{}, counters: map[string]int{}}
}

func (f *fakeQueueStore) NextNumber(_ context.Context, date string) (int, error) {
	f.counters[date]++
	return f.counters[date], nil
}

func (f *fakeQueueStore) Insert(_ context.Context, entry model.QueueEntry) error {
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakeQueueStore) Get(_ context.Context, id string) (model.QueueEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return model.QueueEntry{}, fmt.Errorf("%w: queue entry %s", model.ErrNotFound, id)
	}
	return entry, nil
}

func (f *fakeQueueStore) SetStatus(_ context.Context, id string, from, to model.QueueStatus) error {
	entry, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("%w: queue entry %s", model.ErrNotFound, id)
	}
	if entry.Status != from {
		return fmt.Errorf("%w: status changed concurrently", model.ErrConflict)
	}
	entry.Status = to
	f.entries[id] = entry
	return nil
}

func (f *fakeQueueStore) Delete(_ context.Context, id string) error {
	delete(f.entries, id)
	return nil
}

func (f *fakeQueueStore) ListByDate(_ context.Context, date string) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for _, entry := range f.entries {
		if entry.Date == date {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueNumber < out[j].QueueNumber })
	return out, nil
}

func (f *fakeQueueStore) DeleteFinished(_ context.Context, date string) (int, error) {
	n := 0
	for id, entry := range f.entries {
		if entry.Date != date {
			continue
		}
		if entry.Status == model.QueueDone || entry.Status == model.QueueCancelled {
			delete(f.entries, id)
			n++
		}
	}
	return n, nil
}

const queueDay = "2026-03-02"

func enqueueN(t *testing.T, svc *Service, n int) []model.QueueEntry {
	t.Helper()
	out := make([]model.QueueEntry, 0, n)
	for i := 0; i < n; i++ {
		entry, err := svc.Enqueue(context.Background(), EnqueueInput{
			ClientID:  fmt.Sprintf("c%d", i+1),
			ServiceID: "svc",
			Date:      queueDay,
		})
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		out = append(out, entry)
	}
	return out
}

func TestEnqueue_SequentialNumbers(t *testing.T) {
	svc := NewService(newFakeQueueStore(), slog.Default())
	entries := enqueueN(t, svc, 3)
	for i, entry := range entries {
		if entry.QueueNumber != i+1 {
			t.Fatalf("entry %d: expected number %d, got %d", i, i+1, entry.QueueNumber)
		}
		if entry.Status != model.QueueWaiting {
			t.Fatalf("expected WAITING, got %s", entry.Status)
		}
	}
}

func TestEnqueue_NumbersNeverReused(t *testing.T) {
	svc := NewService(newFakeQueueStore(), slog.Default())
	entries := enqueueN(t, svc, 3)

	if err := svc.Remove(context.Background(), entries[1].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	next, err := svc.Enqueue(context.Background(), EnqueueInput{ClientID: "c4", ServiceID: "svc", Date: queueDay})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if next.QueueNumber != 4 {
		t.Fatalf("expected number 4 after removing #2, got %d", next.QueueNumber)
	}
}

func TestEnqueue_IndependentPerDate(t *testing.T) {
	svc := NewService(newFakeQueueStore(), slog.Default())
	enqueueN(t, svc, 2)

	other, err := svc.Enqueue(context.Background(), EnqueueInput{ClientID: "c9", ServiceID: "svc", Date: "2026-03-03"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if other.QueueNumber != 1 {
		t.Fatalf("expected number 1 on a fresh date, got %d", other.QueueNumber)
	}
}

func TestEnqueue_Validation(t *testing.T) {
	svc := NewService(newFakeQueueStore(), slog.Default())
	if _, err := svc.Enqueue(context.Background(), EnqueueInput{ServiceID: "svc", Date: queueDay}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation without client, got %v", err)
	}
	if _, err := svc.Enqueue(context.Background(), EnqueueInput{ClientID: "c1", ServiceID: "svc", Date: "03/02/2026"}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad date, got %v", err)
	}
}

func TestAdvanceStatus(t *testing.T) {
	svc := NewService(newFakeQueueStore(), slog.Default())
	entry := enqueueN(t, svc, 1)[0]
	ctx := context.Background()

	if err := svc.AdvanceStatus(ctx, entry.ID, model.QueueInService); err != nil {
		t.Fatalf("WAITING -> IN_SERVICE: %v", err)
	}
	if err := svc.AdvanceStatus(ctx, entry.ID, model.QueueDone); err != nil {
		t.Fatalf("IN_SERVICE -> DONE: %v", err)
	}
	if err := svc.AdvanceStatus(ctx, entry.ID, model.QueueInService); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from DONE, got %v", err)
	}
}

func TestAdvanceStatus_SkipRejected(t *testing.T) {
	svc := NewService(newFakeQueueStore(), slog.Default())
	entry := enqueueN(t, svc, 1)[0]

	err := svc.AdvanceStatus(context.Background(), entry.ID, model.QueueDone)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for WAITING -> DONE, got %v", err)
	}
}

func TestPurgeFinished_KeepsActiveEntries(t *testing.T) {
	store := newFakeQueueStore()
	svc := NewService(store, slog.Default())
	entries := enqueueN(t, svc, 4)
	ctx := context.Background()

	// #1 done, #2 cancelled, #3 in service, #4 waiting.
	if err := svc.AdvanceStatus(ctx, entries[0].ID, model.QueueInService); err != nil {
		t.Fatal(err)
	}
	if err := svc.AdvanceStatus(ctx, entries[0].ID, model.QueueDone); err != nil {
		t.Fatal(err)
	}
	if err := svc.AdvanceStatus(ctx, entries[1].ID, model.QueueCancelled); err != nil {
		t.Fatal(err)
	}
	if err := svc.AdvanceStatus(ctx, entries[2].ID, model.QueueInService); err != nil {
		t.Fatal(err)
	}

	n, err := svc.PurgeFinished(ctx, queueDay)
	if err != nil {
		t.Fatalf("PurgeFinished: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged, got %d", n)
	}

	remaining, err := svc.ListDate(ctx, queueDay)
	if err != nil {
		t.Fatalf("ListDate: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	if remaining[0].QueueNumber != 3 || remaining[1].QueueNumber != 4 {
		t.Fatalf("expected numbers 3 and 4 to survive, got %d and %d", remaining[0].QueueNumber, remaining[1].QueueNumber)
	}

	// The counter is untouched: the next walk-in gets 5, not 3.
	next, err := svc.Enqueue(ctx, EnqueueInput{ClientID: "c5", ServiceID: "svc", Date: queueDay})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if next.QueueNumber != 5 {
		t.Fatalf("expected number 5 after purge, got %d", next.QueueNumber)
	}
}

func TestRemove_Unknown(t *testing.T) {
	svc := NewService(newFakeQueueStore(), slog.Default())
	if err := svc.Remove(context.Background(), "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
