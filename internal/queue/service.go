// Package queue sequences walk-in clients per day. Queue numbers come from a
// monotonically increasing per-date counter, so a number handed out is never
// handed out again that day even after entries are removed.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/scheduling/internal/model"
)

// Store persists queue entries. NextNumber must be atomic per date: two
// concurrent enqueues on the same day get distinct, increasing numbers.
type Store interface {
	NextNumber(ctx context.Context, date string) (int, error)
	Insert(ctx context.Context, entry model.QueueEntry) error
	Get(ctx context.Context, id string) (model.QueueEntry, error)
	// SetStatus performs a compare-and-set from the expected current status.
	SetStatus(ctx context.Context, id string, from, to model.QueueStatus) error
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, date string) ([]model.QueueEntry, error)
	// DeleteFinished removes DONE and CANCELLED entries of the date and
	// returns how many were removed.
	DeleteFinished(ctx context.Context, date string) (int, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

type EnqueueInput struct {
	ClientID   string
	ServiceID  string
	ProviderID string // empty means any provider
	Date       string
}

// Enqueue registers a walk-in and assigns the next queue number for the day.
func (s *Service) Enqueue(ctx context.Context, in EnqueueInput) (model.QueueEntry, error) {
	if in.ClientID == "" || in.ServiceID == "" {
		return model.QueueEntry{}, fmt.Errorf("%w: client and service are required", model.ErrValidation)
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return model.QueueEntry{}, err
	}

	number, err := s.store.NextNumber(ctx, date)
	if err != nil {
		return model.QueueEntry{}, err
	}
	entry := model.QueueEntry{
		ID:          uuid.NewString(),
		ClientID:    in.ClientID,
		ServiceID:   in.ServiceID,
		ProviderID:  in.ProviderID,
		Date:        date,
		Status:      model.QueueWaiting,
		ArrivalTime: time.Now().UTC(),
		QueueNumber: number,
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		return model.QueueEntry{}, err
	}
	s.logger.Info("walk-in enqueued", "entry_id", entry.ID, "date", date, "number", number)
	return entry, nil
}

// AdvanceStatus applies one queue state-machine transition.
func (s *Service) AdvanceStatus(ctx context.Context, id string, to model.QueueStatus) error {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !model.CanTransitionQueue(entry.Status, to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, entry.Status, to)
	}
	return s.store.SetStatus(ctx, id, entry.Status, to)
}

// Remove deletes an entry outright. Its number stays burned for the day.
func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ListDate returns the day's entries ordered by queue number.
func (s *Service) ListDate(ctx context.Context, date string) ([]model.QueueEntry, error) {
	date, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.store.ListByDate(ctx, date)
}

// PurgeFinished removes DONE and CANCELLED entries for the date. WAITING and
// IN_SERVICE entries are untouched, and the day's counter keeps its value.
func (s *Service) PurgeFinished(ctx context.Context, date string) (int, error) {
	date, err := model.ParseDate(date)
	if err != nil {
		return 0, err
	}
	n, err := s.store.DeleteFinished(ctx, date)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("queue purged", "date", date, "removed", n)
	}
	return n, nil
}
