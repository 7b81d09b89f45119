package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

// Repository handles desk reservation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reservations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reservationColumns = `id, room_id, cell_id, user_id, date_start, date_end, status, created_at`

func scanReservation(row interface{ Scan(...any) error }) (*models.Reservation, error) {
	var r models.Reservation
	err := row.Scan(&r.ID, &r.RoomID, &r.CellID, &r.UserID, &r.DateStart, &r.DateEnd, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &r, nil
}

// HasConflict reports whether an active reservation on the cell overlaps
// the inclusive date range [start, end].
func (r *Repository) HasConflict(ctx context.Context, cellID uuid.UUID, start, end time.Time) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM reservations
		WHERE cell_id = $1
		  AND status = 'active'
		  AND date_start <= $3
		  AND $2 <= date_end
	)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, cellID, start, end).Scan(&exists); err != nil {
		return false, database.WrapError(err)
	}
	return exists, nil
}

// Create inserts an active reservation.
func (r *Repository) Create(ctx context.Context, roomID, cellID, userID uuid.UUID, start, end time.Time) (*models.Reservation, error) {
	const q = `INSERT INTO reservations (room_id, cell_id, user_id, date_start, date_end)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + reservationColumns
	return scanReservation(r.pool.QueryRow(ctx, q, roomID, cellID, userID, start, end))
}

// Get returns a reservation by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return scanReservation(r.pool.QueryRow(ctx, q, id))
}

// Cancel marks an active reservation cancelled.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	const q = `UPDATE reservations SET status = 'cancelled'
		WHERE id = $1 AND status = 'active'
		RETURNING ` + reservationColumns
	return scanReservation(r.pool.QueryRow(ctx, q, id))
}

// ListByRoom returns the room's reservations, optionally bounded to a date
// range, newest first.
func (r *Repository) ListByRoom(ctx context.Context, roomID uuid.UUID, from, to *time.Time) ([]models.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE room_id = $1
		  AND ($2::date IS NULL OR date_end >= $2)
		  AND ($3::date IS NULL OR date_start <= $3)
		ORDER BY date_start DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, q, roomID, from, to)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()

	var list []models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *res)
	}
	return list, rows.Err()
}
