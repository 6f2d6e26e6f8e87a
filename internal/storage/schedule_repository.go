package storage

import (
	"context"
	"fmt"

	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/libs/db"
)

// ScheduleRepository implements schedule.Store over the weekly template
// table, one row per provider weekday.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) GetWeek(ctx context.Context, providerID string) ([]model.DayAvailability, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM providers WHERE id = $1)
	`, providerID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: provider %s", model.ErrNotFound, providerID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_active, start_minute, end_minute, break_start, break_end,
			COALESCE(location_id::text, '')
		FROM provider_working_hours
		WHERE provider_id = $1
		ORDER BY weekday ASC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var week []model.DayAvailability
	for rows.Next() {
		var day model.DayAvailability
		if err := rows.Scan(&day.Weekday, &day.IsActive, &day.StartMinute, &day.EndMinute,
			&day.BreakStart, &day.BreakEnd, &day.LocationID); err != nil {
			return nil, err
		}
		week = append(week, day)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return week, nil
}

func (r *ScheduleRepository) UpsertDay(ctx context.Context, providerID string, day model.DayAvailability) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider_working_hours
			(provider_id, weekday, is_active, start_minute, end_minute, break_start, break_end, location_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_id, weekday) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			break_start = EXCLUDED.break_start,
			break_end = EXCLUDED.break_end,
			location_id = EXCLUDED.location_id,
			updated_at = now()
	`, providerID, day.Weekday, day.IsActive, day.StartMinute, day.EndMinute,
		day.BreakStart, day.BreakEnd, nullIfEmpty(day.LocationID))
	return err
}
