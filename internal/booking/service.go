// Package booking is the appointment ledger: it owns the appointment status
// state machine, conflict-checked slot reservation, administrative blocks and
// day closures, and the domain events they emit.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/outbox"
	"github.com/slotline/scheduling/internal/slots"
)

// Store persists appointments and blocks. Mutations that carry events must
// write the rows and the events in one transaction.
type Store interface {
	// CreateAppointment inserts one row. For non-squeeze-in bookings it must
	// atomically reject interval overlap with existing non-cancelled,
	// non-squeeze-in rows for the same provider and date (model.ErrConflict),
	// serialized per (provider, date). When idemKey is non-empty and was
	// already finalized, it returns replayed=true with appt.ID set to the
	// previously created appointment.
	CreateAppointment(ctx context.Context, appt *model.Appointment, idemKey string, evts ...outbox.Event) (replayed bool, err error)
	// CreateBlocks inserts block rows all-or-nothing. Day-closure rows that
	// already exist for their (provider, date) are skipped, not duplicated.
	CreateBlocks(ctx context.Context, rows []model.Appointment, evts ...outbox.Event) error
	Get(ctx context.Context, id string) (model.Appointment, error)
	// SetStatus performs a compare-and-set from the expected current status.
	SetStatus(ctx context.Context, id string, from, to model.AppointmentStatus, reason string, evts ...outbox.Event) error
	// CancelBlockRange cancels block rows of the provider-day whose start
	// minute falls in [start, end) and returns how many were cancelled.
	CancelBlockRange(ctx context.Context, providerID, date string, startMinute, endMinute int) (int, error)
	ListDay(ctx context.Context, providerID, date string) ([]model.Appointment, error)
	HasDayClosure(ctx context.Context, providerID, date string) (bool, error)
}

// Schedules resolves the weekly template for a provider-date.
type Schedules interface {
	Resolve(ctx context.Context, providerID, date string) (model.DayAvailability, bool, error)
}

// Directory is the read-only provider/location/service collaborator.
type Directory interface {
	ProviderActive(ctx context.Context, id string) (bool, error)
	ActiveProviders(ctx context.Context) ([]string, error)
	LocationActive(ctx context.Context, id string) (bool, error)
	ServiceDuration(ctx context.Context, id string) (int, error)
}

// AuditSink records administrative actions. Failures are logged, never fatal.
type AuditSink interface {
	Record(ctx context.Context, action, actorID string, metadata map[string]any) error
}

type Service struct {
	store     Store
	schedules Schedules
	directory Directory
	audit     AuditSink
	logger    *slog.Logger
}

func NewService(store Store, schedules Schedules, directory Directory, audit AuditSink, logger *slog.Logger) *Service {
	return &Service{store: store, schedules: schedules, directory: directory, audit: audit, logger: logger}
}

// ListAvailableSlots returns the open start minutes for a provider-day at a
// location, ascending. A closed day, an inactive weekday, or a template bound
// to a different location all yield an empty list.
func (s *Service) ListAvailableSlots(ctx context.Context, providerID, date string, durationMinutes int, locationID string) ([]int, error) {
	date, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", model.ErrValidation)
	}
	if providerID == "" || locationID == "" {
		return nil, fmt.Errorf("%w: provider and location are required", model.ErrValidation)
	}

	closed, err := s.store.HasDayClosure(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, nil
	}

	avail, ok, err := s.schedules.Resolve(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	if !ok || avail.LocationID != locationID {
		return nil, nil
	}

	day, err := s.store.ListDay(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	return slots.Generate(avail, false, slots.BusyIntervals(day), durationMinutes), nil
}

type CreateInput struct {
	ClientID       string
	ProviderID     string
	LocationID     string
	ServiceID      string
	Date           string
	StartMinute    int
	Price          float64
	SqueezeIn      bool
	Notes          string
	IdempotencyKey string
}

// Create books an appointment. Normal bookings go through the atomic
// check-and-reserve; squeeze-ins are accepted unconditionally to fit a client
// in anyway.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	if in.ClientID == "" || in.ProviderID == "" || in.LocationID == "" || in.ServiceID == "" {
		return model.Appointment{}, fmt.Errorf("%w: client, provider, location and service are required", model.ErrValidation)
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	if in.StartMinute < 0 || in.StartMinute >= 24*60 {
		return model.Appointment{}, fmt.Errorf("%w: time out of range", model.ErrValidation)
	}
	if in.Price < 0 {
		return model.Appointment{}, fmt.Errorf("%w: price must not be negative", model.ErrValidation)
	}

	if active, err := s.directory.ProviderActive(ctx, in.ProviderID); err != nil {
		return model.Appointment{}, err
	} else if !active {
		return model.Appointment{}, fmt.Errorf("%w: provider %s", model.ErrNotFound, in.ProviderID)
	}
	if active, err := s.directory.LocationActive(ctx, in.LocationID); err != nil {
		return model.Appointment{}, err
	} else if !active {
		return model.Appointment{}, fmt.Errorf("%w: location %s", model.ErrNotFound, in.LocationID)
	}
	duration, err := s.directory.ServiceDuration(ctx, in.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if duration <= 0 {
		duration = model.SlotStepMinutes
	}

	appt := model.Appointment{
		ID:              uuid.NewString(),
		Kind:            model.KindBooking,
		ClientID:        in.ClientID,
		ProviderID:      in.ProviderID,
		LocationID:      in.LocationID,
		ServiceID:       in.ServiceID,
		Date:            date,
		StartMinute:     in.StartMinute,
		DurationMinutes: duration,
		Status:          model.StatusConfirmed,
		Price:           in.Price,
		SqueezeIn:       in.SqueezeIn,
		Notes:           in.Notes,
		CreatedAt:       time.Now().UTC(),
	}

	evt, err := appointmentEvent(outbox.EventAppointmentBooked, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	replayed, err := s.store.CreateAppointment(ctx, &appt, in.IdempotencyKey, evt)
	if err != nil {
		return model.Appointment{}, err
	}
	if replayed {
		return s.store.Get(ctx, appt.ID)
	}
	return appt, nil
}

// Cancel moves a booking to CANCELLED and emits the cancellation event the
// waiting list matcher consumes. Cancelling block rows releases them without
// an event; the audit trail records the unblock instead.
func (s *Service) Cancel(ctx context.Context, id, reason, actorID string) error {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !model.CanTransition(appt.Status, model.StatusCancelled) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, appt.Status, model.StatusCancelled)
	}

	if appt.Kind != model.KindBooking {
		if err := s.store.SetStatus(ctx, id, appt.Status, model.StatusCancelled, reason); err != nil {
			return err
		}
		s.recordAudit(ctx, "unblock", actorID, map[string]any{
			"provider_id": appt.ProviderID,
			"date":        appt.Date,
			"time":        model.FormatClock(appt.StartMinute),
			"kind":        string(appt.Kind),
			"reason":      reason,
		})
		return nil
	}

	evt, err := appointmentEvent(outbox.EventAppointmentCancelled, appt)
	if err != nil {
		return err
	}
	return s.store.SetStatus(ctx, id, appt.Status, model.StatusCancelled, reason, evt)
}

// UpdateStatus applies one state-machine transition. A transition to
// CANCELLED delegates to Cancel so the cancellation event is not skipped.
func (s *Service) UpdateStatus(ctx context.Context, id string, to model.AppointmentStatus, actorID string) error {
	if to == model.StatusCancelled {
		return s.Cancel(ctx, id, "", actorID)
	}
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !model.CanTransition(appt.Status, to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, appt.Status, to)
	}
	return s.store.SetStatus(ctx, id, appt.Status, to, "")
}

// BlockRange makes [start, end) unavailable by inserting one 30-minute block
// row per increment; each occupies exactly one slot candidate, so the
// generator needs no range logic. All-or-nothing.
func (s *Service) BlockRange(ctx context.Context, providerID, locationID, date string, startMinute, endMinute int, reason, actorID string) error {
	date, err := model.ParseDate(date)
	if err != nil {
		return err
	}
	if endMinute <= startMinute {
		return fmt.Errorf("%w: end must be after start", model.ErrValidation)
	}
	if startMinute%model.SlotStepMinutes != 0 || endMinute%model.SlotStepMinutes != 0 {
		return fmt.Errorf("%w: block bounds must align to the %d-minute grid", model.ErrValidation, model.SlotStepMinutes)
	}
	if active, err := s.directory.ProviderActive(ctx, providerID); err != nil {
		return err
	} else if !active {
		return fmt.Errorf("%w: provider %s", model.ErrNotFound, providerID)
	}

	now := time.Now().UTC()
	var rows []model.Appointment
	for c := startMinute; c < endMinute; c += model.SlotStepMinutes {
		rows = append(rows, model.Appointment{
			ID:              uuid.NewString(),
			Kind:            model.KindRangeBlock,
			ProviderID:      providerID,
			LocationID:      locationID,
			Date:            date,
			StartMinute:     c,
			DurationMinutes: model.SlotStepMinutes,
			Status:          model.StatusBlocked,
			Reason:          reason,
			CreatedAt:       now,
		})
	}
	if err := s.store.CreateBlocks(ctx, rows); err != nil {
		return err
	}

	s.recordAudit(ctx, "block_range", actorID, map[string]any{
		"provider_id": providerID,
		"date":        date,
		"from":        model.FormatClock(startMinute),
		"to":          model.FormatClock(endMinute),
		"reason":      reason,
	})
	return nil
}

// ReleaseBlockRange cancels the block rows covering [start, end).
func (s *Service) ReleaseBlockRange(ctx context.Context, providerID, date string, startMinute, endMinute int, actorID string) error {
	date, err := model.ParseDate(date)
	if err != nil {
		return err
	}
	if endMinute <= startMinute {
		return fmt.Errorf("%w: end must be after start", model.ErrValidation)
	}
	n, err := s.store.CancelBlockRange(ctx, providerID, date, startMinute, endMinute)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no blocks in range", model.ErrNotFound)
	}

	s.recordAudit(ctx, "unblock_range", actorID, map[string]any{
		"provider_id": providerID,
		"date":        date,
		"from":        model.FormatClock(startMinute),
		"to":          model.FormatClock(endMinute),
		"released":    n,
	})
	return nil
}

// CloseDay inserts one day-closure row per active provider, all-or-nothing.
// Providers whose day is already closed are left as-is.
func (s *Service) CloseDay(ctx context.Context, date, reason, actorID string) error {
	date, err := model.ParseDate(date)
	if err != nil {
		return err
	}
	providers, err := s.directory.ActiveProviders(ctx)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]model.Appointment, 0, len(providers))
	for _, providerID := range providers {
		rows = append(rows, model.Appointment{
			ID:         uuid.NewString(),
			Kind:       model.KindDayClosure,
			ProviderID: providerID,
			Date:       date,
			Status:     model.StatusBlocked,
			Reason:     reason,
			CreatedAt:  now,
		})
	}

	payload, err := json.Marshal(map[string]any{
		"date":      date,
		"reason":    reason,
		"providers": providers,
	})
	if err != nil {
		return err
	}
	evt := outbox.Event{
		AggregateType: "day",
		AggregateID:   date,
		EventType:     outbox.EventDayClosed,
		Payload:       payload,
	}
	if err := s.store.CreateBlocks(ctx, rows, evt); err != nil {
		return err
	}

	s.recordAudit(ctx, "close_day", actorID, map[string]any{
		"date":      date,
		"reason":    reason,
		"providers": len(providers),
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Appointment, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListDay(ctx context.Context, providerID, date string) ([]model.Appointment, error) {
	date, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.store.ListDay(ctx, providerID, date)
}

func (s *Service) recordAudit(ctx context.Context, action, actorID string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, actorID, metadata); err != nil {
		s.logger.Warn("audit record failed", "action", action, "err", err)
	}
}

func appointmentEvent(eventType string, appt model.Appointment) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"provider_id":    appt.ProviderID,
		"location_id":    appt.LocationID,
		"service_id":     appt.ServiceID,
		"client_id":      appt.ClientID,
		"date":           appt.Date,
		"time":           model.FormatClock(appt.StartMinute),
		"duration":       appt.DurationMinutes,
		"squeeze_in":     appt.SqueezeIn,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
