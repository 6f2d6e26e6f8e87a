// Package audit writes the administrative action trail.
package audit

import (
	"context"
	"encoding/json"

	"github.com/slotline/scheduling/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Record(ctx context.Context, action, actorID string, metadata map[string]any) error {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_log (action, actor_id, metadata)
		VALUES ($1, $2, $3)
	`, action, actorID, payload)
	return err
}
