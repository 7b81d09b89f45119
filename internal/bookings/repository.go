package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

// Repository handles office-booking persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a bookings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookingColumns = `id, office_id, user_id, start_time, end_time, is_admin_block, created_by, created_at`

func scanBooking(row pgx.Row) (*models.OfficeBooking, error) {
	var b models.OfficeBooking
	err := row.Scan(&b.ID, &b.OfficeID, &b.UserID, &b.StartTime, &b.EndTime, &b.IsAdminBlock, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &b, nil
}

// HasConflict reports whether any booking for the office intersects
// [start, end). The comparison is strict on both sides, so back-to-back
// bookings do not collide. excludeID skips one booking when re-validating an
// update.
func (r *Repository) HasConflict(ctx context.Context, officeID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM office_bookings
		WHERE office_id = $1 AND start_time < $3 AND $2 < end_time
		AND ($4::uuid IS NULL OR id <> $4)
	)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, officeID, start, end, excludeID).Scan(&exists); err != nil {
		return false, database.WrapError(err)
	}
	return exists, nil
}

// Create inserts a booking. An exclusion-constraint violation surfaces as
// database.ErrConflict, covering the window between the conflict scan and
// the insert.
func (r *Repository) Create(ctx context.Context, officeID uuid.UUID, userID *uuid.UUID, start, end time.Time, isAdminBlock bool, createdBy uuid.UUID) (*models.OfficeBooking, error) {
	const q = `INSERT INTO office_bookings (office_id, user_id, start_time, end_time, is_admin_block, created_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + bookingColumns
	return scanBooking(r.pool.QueryRow(ctx, q, officeID, userID, start, end, isAdminBlock, createdBy))
}

// Get returns a booking by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.OfficeBooking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM office_bookings WHERE id = $1`
	return scanBooking(r.pool.QueryRow(ctx, q, id))
}

// Delete removes a booking.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM office_bookings WHERE id = $1`, id)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *Repository) queryBookings(ctx context.Context, q string, args ...any) ([]models.OfficeBooking, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()
	var list []models.OfficeBooking
	for rows.Next() {
		var b models.OfficeBooking
		if err := rows.Scan(&b.ID, &b.OfficeID, &b.UserID, &b.StartTime, &b.EndTime, &b.IsAdminBlock, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, b)
	}
	return list, database.WrapError(rows.Err())
}

// ListByOffice returns the office's bookings, optionally limited to a time
// window.
func (r *Repository) ListByOffice(ctx context.Context, officeID uuid.UUID, from, to *time.Time) ([]models.OfficeBooking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM office_bookings
		WHERE office_id = $1
		AND ($2::timestamptz IS NULL OR end_time > $2)
		AND ($3::timestamptz IS NULL OR start_time < $3)
		ORDER BY start_time`
	return r.queryBookings(ctx, q, officeID, from, to)
}

// ListByUser returns a user's bookings, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.OfficeBooking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM office_bookings
		WHERE user_id = $1 ORDER BY start_time DESC`
	return r.queryBookings(ctx, q, userID)
}
