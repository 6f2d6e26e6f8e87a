package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/outbox"
	"github.com/slotline/scheduling/libs/db"
)

// WaitlistRepository implements waitlist.Store.
type WaitlistRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewWaitlistRepository(pool *db.Pool, outboxRepo *outbox.Repository) *WaitlistRepository {
	return &WaitlistRepository{pool: pool, outbox: outboxRepo}
}

func (r *WaitlistRepository) Insert(ctx context.Context, entry model.WaitingListEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO waitlist_entries
			(id, client_id, service_id, provider_id, date, notes, notified, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.ClientID, nullIfEmpty(entry.ServiceID), nullIfEmpty(entry.ProviderID),
		entry.Date, entry.Notes, entry.Notified, entry.Status, entry.CreatedAt)
	return err
}

const waitlistColumns = `
	id, client_id, COALESCE(service_id::text, ''), COALESCE(provider_id::text, ''),
	date, notes, notified, status, created_at`

func scanWaitlistEntry(row pgx.Row) (model.WaitingListEntry, error) {
	var entry model.WaitingListEntry
	err := row.Scan(
		&entry.ID,
		&entry.ClientID,
		&entry.ServiceID,
		&entry.ProviderID,
		&entry.Date,
		&entry.Notes,
		&entry.Notified,
		&entry.Status,
		&entry.CreatedAt,
	)
	return entry, err
}

func (r *WaitlistRepository) Get(ctx context.Context, id string) (model.WaitingListEntry, error) {
	entry, err := scanWaitlistEntry(r.pool.QueryRow(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.WaitingListEntry{}, fmt.Errorf("%w: waitlist entry %s", model.ErrNotFound, id)
	}
	return entry, err
}

func (r *WaitlistRepository) SetStatus(ctx context.Context, id string, from, to model.WaitlistStatus, notified bool, evts ...outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = $3, notified = $4
		WHERE id = $1 AND status = $2
	`, id, from, to, notified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM waitlist_entries WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: waitlist entry %s", model.ErrNotFound, id)
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

func (r *WaitlistRepository) ListWaiting(ctx context.Context, date string) ([]model.WaitingListEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE date = $1 AND status = 'WAITING'
		ORDER BY created_at ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.WaitingListEntry
	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func (r *WaitlistRepository) InsertMatches(ctx context.Context, matches []model.WaitlistMatch) error {
	if len(matches) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, m := range matches {
		if _, err := tx.Exec(ctx, `
			INSERT INTO waitlist_matches
				(id, entry_id, appointment_id, date, freed_start_minute, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (entry_id, appointment_id) DO NOTHING
		`, m.ID, m.EntryID, m.AppointmentID, m.Date, m.FreedStartMinute, m.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *WaitlistRepository) ListMatches(ctx context.Context, date string) ([]model.WaitlistMatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entry_id, appointment_id, date, freed_start_minute, created_at
		FROM waitlist_matches
		WHERE date = $1
		ORDER BY created_at ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []model.WaitlistMatch
	for rows.Next() {
		var m model.WaitlistMatch
		if err := rows.Scan(&m.ID, &m.EntryID, &m.AppointmentID, &m.Date, &m.FreedStartMinute, &m.CreatedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return matches, nil
}
