package notifications

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

// Repository persists notification records written by the worker.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a notification. userID is nil for admin-block events that
// have no occupant.
func (r *Repository) Create(ctx context.Context, userID *uuid.UUID, kind string, payload json.RawMessage) (*models.Notification, error) {
	const q = `INSERT INTO notifications (user_id, kind, payload)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, kind, payload, created_at`
	var n models.Notification
	err := r.pool.QueryRow(ctx, q, userID, kind, payload).
		Scan(&n.ID, &n.UserID, &n.Kind, &n.Payload, &n.CreatedAt)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &n, nil
}

// ListByUser returns the user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, user_id, kind, payload, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()

	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Payload, &n.CreatedAt); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}
