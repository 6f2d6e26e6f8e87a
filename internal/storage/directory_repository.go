package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/libs/db"
)

// DirectoryRepository reads the provider, location and service catalogs.
// These tables are owned by the directory side of the platform; the
// scheduling service only ever reads them.
type DirectoryRepository struct {
	pool *db.Pool
}

func NewDirectoryRepository(pool *db.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) ProviderActive(ctx context.Context, id string) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `
		SELECT is_active FROM providers WHERE id = $1
	`, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return active, err
}

func (r *DirectoryRepository) ActiveProviders(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM providers WHERE is_active ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

func (r *DirectoryRepository) LocationActive(ctx context.Context, id string) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `
		SELECT is_active FROM locations WHERE id = $1
	`, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return active, err
}

func (r *DirectoryRepository) FirstActiveLocation(ctx context.Context) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM locations WHERE is_active ORDER BY created_at ASC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: no active location", model.ErrNotFound)
	}
	return id, err
}

func (r *DirectoryRepository) ServiceDuration(ctx context.Context, id string) (int, error) {
	var duration int
	err := r.pool.QueryRow(ctx, `
		SELECT duration_minutes FROM services WHERE id = $1 AND is_active
	`, id).Scan(&duration)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: service %s", model.ErrNotFound, id)
	}
	return duration, err
}
