// Package waitlist keeps per-day waiting entries and surfaces freed slots
// against them when an appointment is cancelled. Matching is advisory: a match
// row is recorded for staff to act on, nothing is booked automatically.
package waitlist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/outbox"
)

// Store persists waiting entries and their matches. SetStatus mutations that
// carry events must write the row and the events in one transaction.
type Store interface {
	Insert(ctx context.Context, entry model.WaitingListEntry) error
	Get(ctx context.Context, id string) (model.WaitingListEntry, error)
	// SetStatus performs a compare-and-set from the expected current status.
	SetStatus(ctx context.Context, id string, from, to model.WaitlistStatus, notified bool, evts ...outbox.Event) error
	ListWaiting(ctx context.Context, date string) ([]model.WaitingListEntry, error)
	InsertMatches(ctx context.Context, matches []model.WaitlistMatch) error
	ListMatches(ctx context.Context, date string) ([]model.WaitlistMatch, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

type AddInput struct {
	ClientID   string
	ServiceID  string // empty means any service
	ProviderID string // empty means any provider
	Date       string
	Notes      string
}

// Add registers a client on the waiting list for a day.
func (s *Service) Add(ctx context.Context, in AddInput) (model.WaitingListEntry, error) {
	if in.ClientID == "" {
		return model.WaitingListEntry{}, fmt.Errorf("%w: client is required", model.ErrValidation)
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return model.WaitingListEntry{}, err
	}

	entry := model.WaitingListEntry{
		ID:         uuid.NewString(),
		ClientID:   in.ClientID,
		ServiceID:  in.ServiceID,
		ProviderID: in.ProviderID,
		Date:       date,
		Notes:      in.Notes,
		Status:     model.WaitlistWaiting,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		return model.WaitingListEntry{}, err
	}
	return entry, nil
}

// ListForDate returns the WAITING entries of a day.
func (s *Service) ListForDate(ctx context.Context, date string) ([]model.WaitingListEntry, error) {
	date, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.store.ListWaiting(ctx, date)
}

// MarkNotified moves an entry to NOTIFIED and emits the notification event the
// messaging side delivers to the client.
func (s *Service) MarkNotified(ctx context.Context, id string) error {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !model.CanTransitionWaitlist(entry.Status, model.WaitlistNotified) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, entry.Status, model.WaitlistNotified)
	}

	payload, err := json.Marshal(map[string]any{
		"entry_id":  entry.ID,
		"client_id": entry.ClientID,
		"date":      entry.Date,
	})
	if err != nil {
		return err
	}
	evt := outbox.Event{
		AggregateType: "waitlist_entry",
		AggregateID:   entry.ID,
		EventType:     outbox.EventWaitlistNotify,
		Payload:       payload,
	}
	return s.store.SetStatus(ctx, id, entry.Status, model.WaitlistNotified, true, evt)
}

// Resolve applies a terminal transition, DONE when the client took the freed
// slot or CANCELLED when they dropped off the list.
func (s *Service) Resolve(ctx context.Context, id string, to model.WaitlistStatus) error {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !model.CanTransitionWaitlist(entry.Status, to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, entry.Status, to)
	}
	return s.store.SetStatus(ctx, id, entry.Status, to, entry.Notified)
}

// ListMatches returns the recorded freed-slot matches of a day.
func (s *Service) ListMatches(ctx context.Context, date string) ([]model.WaitlistMatch, error) {
	date, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.store.ListMatches(ctx, date)
}

// CancelledAppointment is the cancellation event payload the matcher consumes.
type CancelledAppointment struct {
	AppointmentID string `json:"appointment_id"`
	ProviderID    string `json:"provider_id"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// HandleCancellation records a match row for every WAITING entry of the day
// that is compatible with the freed slot. Entries bound to a provider or
// service only match when the freed appointment had the same one.
func (s *Service) HandleCancellation(ctx context.Context, freed CancelledAppointment) error {
	start, err := model.ParseClock(freed.Time)
	if err != nil {
		return err
	}
	waiting, err := s.store.ListWaiting(ctx, freed.Date)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var matches []model.WaitlistMatch
	for _, entry := range waiting {
		if entry.ProviderID != "" && entry.ProviderID != freed.ProviderID {
			continue
		}
		if entry.ServiceID != "" && entry.ServiceID != freed.ServiceID {
			continue
		}
		matches = append(matches, model.WaitlistMatch{
			ID:               uuid.NewString(),
			EntryID:          entry.ID,
			AppointmentID:    freed.AppointmentID,
			Date:             freed.Date,
			FreedStartMinute: start,
			CreatedAt:        now,
		})
	}
	if len(matches) == 0 {
		return nil
	}
	if err := s.store.InsertMatches(ctx, matches); err != nil {
		return err
	}
	s.logger.Info("waitlist matched",
		"appointment_id", freed.AppointmentID,
		"date", freed.Date,
		"matches", len(matches))
	return nil
}
