package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/libs/db"
)

// QueueRepository implements queue.Store. The per-date counter row makes
// number assignment atomic and monotonic: deleting entries never frees their
// numbers.
type QueueRepository struct {
	pool *db.Pool
}

func NewQueueRepository(pool *db.Pool) *QueueRepository {
	return &QueueRepository{pool: pool}
}

func (r *QueueRepository) NextNumber(ctx context.Context, date string) (int, error) {
	var number int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO queue_counters (date, last_number)
		VALUES ($1, 1)
		ON CONFLICT (date) DO UPDATE SET last_number = queue_counters.last_number + 1
		RETURNING last_number
	`, date).Scan(&number)
	return number, err
}

func (r *QueueRepository) Insert(ctx context.Context, entry model.QueueEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO queue_entries
			(id, client_id, service_id, provider_id, date, status, arrival_time, queue_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.ClientID, entry.ServiceID, nullIfEmpty(entry.ProviderID),
		entry.Date, entry.Status, entry.ArrivalTime, entry.QueueNumber)
	return err
}

const queueColumns = `
	id, client_id, COALESCE(service_id::text, ''), COALESCE(provider_id::text, ''),
	date, status, arrival_time, queue_number`

func scanQueueEntry(row pgx.Row) (model.QueueEntry, error) {
	var entry model.QueueEntry
	err := row.Scan(
		&entry.ID,
		&entry.ClientID,
		&entry.ServiceID,
		&entry.ProviderID,
		&entry.Date,
		&entry.Status,
		&entry.ArrivalTime,
		&entry.QueueNumber,
	)
	return entry, err
}

func (r *QueueRepository) Get(ctx context.Context, id string) (model.QueueEntry, error) {
	entry, err := scanQueueEntry(r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM queue_entries
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.QueueEntry{}, fmt.Errorf("%w: queue entry %s", model.ErrNotFound, id)
	}
	return entry, err
}

func (r *QueueRepository) SetStatus(ctx context.Context, id string, from, to model.QueueStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE queue_entries
		SET status = $3
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM queue_entries WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: queue entry %s", model.ErrNotFound, id)
		}
		return fmt.Errorf("%w: status changed concurrently", model.ErrConflict)
	}
	return nil
}

func (r *QueueRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM queue_entries WHERE id = $1`, id)
	return err
}

func (r *QueueRepository) ListByDate(ctx context.Context, date string) ([]model.QueueEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM queue_entries
		WHERE date = $1
		ORDER BY queue_number ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
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

func (r *QueueRepository) DeleteFinished(ctx context.Context, date string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM queue_entries
		WHERE date = $1 AND status IN ('DONE', 'CANCELLED')
	`, date)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
