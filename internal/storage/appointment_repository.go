// Package storage holds the pgx repositories of the scheduling service.
package storage

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/outbox"
	"github.com/slotline/scheduling/libs/db"
)

// AppointmentRepository implements booking.Store. Reservation writes are
// serialized per (provider, date) with a transaction-scoped advisory lock, so
// the overlap check and the insert are atomic without table locks.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

func providerDayKey(providerID, date string) int64 {
	h := fnv.New64a()
	h.Write([]byte(providerID))
	h.Write([]byte{0})
	h.Write([]byte(date))
	return int64(h.Sum64())
}

func lockProviderDay(ctx context.Context, tx pgx.Tx, providerID, date string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, providerDayKey(providerID, date))
	return err
}

func (r *AppointmentRepository) CreateAppointment(ctx context.Context, appt *model.Appointment, idemKey string, evts ...outbox.Event) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if idemKey != "" {
		existingID, err := lockIdempotencyKey(ctx, tx, idemKey)
		if err != nil {
			return false, err
		}
		if existingID != "" {
			appt.ID = existingID
			return true, nil
		}
	}

	if err := lockProviderDay(ctx, tx, appt.ProviderID, appt.Date); err != nil {
		return false, err
	}

	if !appt.SqueezeIn {
		conflict, err := hasOverlap(ctx, tx, appt.ProviderID, appt.Date, appt.StartMinute, appt.EndMinute())
		if err != nil {
			return false, err
		}
		if conflict {
			return false, model.ErrConflict
		}
	}

	if err := insertAppointment(ctx, tx, *appt); err != nil {
		return false, err
	}
	for _, evt := range evts {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return false, err
		}
	}
	if idemKey != "" {
		if _, err := tx.Exec(ctx, `
			UPDATE appointment_idempotency_keys
			SET appointment_id = $2, finalized_at = now()
			WHERE idempotency_key = $1
		`, idemKey, appt.ID); err != nil {
			return false, err
		}
	}
	return false, tx.Commit(ctx)
}

// lockIdempotencyKey claims idemKey with a row lock and returns the finalized
// appointment ID, or "" when this transaction owns a fresh claim. A concurrent
// request holding the same key blocks us on the row lock until it commits; the
// re-select after the insert then sees its finalized ID instead of racing it.
// An empty appointment_id on an existing row means an earlier attempt rolled
// back mid-transaction, so the caller retries the insert.
func lockIdempotencyKey(ctx context.Context, tx pgx.Tx, idemKey string) (string, error) {
	selectForUpdate := `
		SELECT COALESCE(appointment_id::text, '')
		FROM appointment_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE`

	var existingID string
	err := tx.QueryRow(ctx, selectForUpdate, idemKey).Scan(&existingID)
	if err == nil || !errors.Is(err, pgx.ErrNoRows) {
		return existingID, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO appointment_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, idemKey); err != nil {
		return "", err
	}
	if err := tx.QueryRow(ctx, selectForUpdate, idemKey).Scan(&existingID); err != nil {
		return "", err
	}
	return existingID, nil
}

// hasOverlap reports whether [start, end) intersects a non-cancelled,
// non-squeeze-in booking or block of the provider-day, or the whole day is
// closed.
func hasOverlap(ctx context.Context, tx pgx.Tx, providerID, date string, start, end int) (bool, error) {
	var conflict bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE provider_id = $1
				AND date = $2
				AND status <> 'CANCELLED'
				AND NOT squeeze_in
				AND (
					kind = 'day_closure'
					OR (start_minute < $4 AND start_minute + duration_minutes > $3)
				)
		)
	`, providerID, date, start, end).Scan(&conflict)
	return conflict, err
}

func insertAppointment(ctx context.Context, tx pgx.Tx, appt model.Appointment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments
			(id, kind, client_id, provider_id, location_id, service_id,
			 date, start_minute, duration_minutes, status, price, squeeze_in, notes, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, appt.ID, appt.Kind, nullIfEmpty(appt.ClientID), appt.ProviderID, nullIfEmpty(appt.LocationID),
		nullIfEmpty(appt.ServiceID), appt.Date, appt.StartMinute, appt.DurationMinutes,
		appt.Status, appt.Price, appt.SqueezeIn, appt.Notes, appt.Reason)
	return err
}

func (r *AppointmentRepository) CreateBlocks(ctx context.Context, rows []model.Appointment, evts ...outbox.Event) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Rows may span providers (day closures do); lock each provider-day once.
	locked := map[string]bool{}
	for _, row := range rows {
		key := row.ProviderID + "\x00" + row.Date
		if locked[key] {
			continue
		}
		if err := lockProviderDay(ctx, tx, row.ProviderID, row.Date); err != nil {
			return err
		}
		locked[key] = true
	}

	for _, row := range rows {
		if row.Kind == model.KindDayClosure {
			var closed bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM appointments
					WHERE provider_id = $1 AND date = $2
						AND kind = 'day_closure' AND status <> 'CANCELLED'
				)
			`, row.ProviderID, row.Date).Scan(&closed)
			if err != nil {
				return err
			}
			if closed {
				continue
			}
		} else {
			conflict, err := hasOverlap(ctx, tx, row.ProviderID, row.Date, row.StartMinute, row.EndMinute())
			if err != nil {
				return err
			}
			if conflict {
				return fmt.Errorf("%w: %s at %s", model.ErrConflict, row.Date, model.FormatClock(row.StartMinute))
			}
		}
		if err := insertAppointment(ctx, tx, row); err != nil {
			return err
		}
	}
	for _, evt := range evts {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const appointmentColumns = `
	id, kind, COALESCE(client_id::text, ''), provider_id, COALESCE(location_id::text, ''),
	COALESCE(service_id::text, ''), date, start_minute, duration_minutes, status,
	price, squeeze_in, notes, reason, cancelled_at, created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.Kind,
		&appt.ClientID,
		&appt.ProviderID,
		&appt.LocationID,
		&appt.ServiceID,
		&appt.Date,
		&appt.StartMinute,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.Price,
		&appt.SqueezeIn,
		&appt.Notes,
		&appt.Reason,
		&appt.CancelledAt,
		&appt.CreatedAt,
	)
	return appt, err
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("%w: appointment %s", model.ErrNotFound, id)
	}
	return appt, err
}

func (r *AppointmentRepository) SetStatus(ctx context.Context, id string, from, to model.AppointmentStatus, reason string, evts ...outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $3,
			reason = CASE WHEN $4 <> '' THEN $4 ELSE reason END,
			cancelled_at = CASE WHEN $3 = 'CANCELLED' THEN now() ELSE cancelled_at END
		WHERE id = $1 AND status = $2
	`, id, from, to, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: appointment %s", model.ErrNotFound, id)
		}
		return fmt.Errorf("%w: status changed concurrently", model.ErrConflict)
	}

	for _, evt := range evts {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) CancelBlockRange(ctx context.Context, providerID, date string, startMinute, endMinute int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED', cancelled_at = now()
		WHERE provider_id = $1
			AND date = $2
			AND kind = 'range_block'
			AND status = 'BLOCKED'
			AND start_minute >= $3
			AND start_minute < $4
	`, providerID, date, startMinute, endMinute)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *AppointmentRepository) ListDay(ctx context.Context, providerID, date string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1 AND date = $2
		ORDER BY start_minute ASC, created_at ASC
	`, providerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) HasDayClosure(ctx context.Context, providerID, date string) (bool, error) {
	var closed bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE provider_id = $1 AND date = $2
				AND kind = 'day_closure' AND status <> 'CANCELLED'
		)
	`, providerID, date).Scan(&closed)
	return closed, err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
