package offices

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

// Repository handles office persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an offices repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const officeColumns = `id, name, location, is_shared, created_at, updated_at`

func scanOffice(row pgx.Row) (*models.Office, error) {
	var o models.Office
	err := row.Scan(&o.ID, &o.Name, &o.Location, &o.IsShared, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &o, nil
}

// Create inserts an office.
func (r *Repository) Create(ctx context.Context, name, location string, isShared bool) (*models.Office, error) {
	const q = `INSERT INTO offices (name, location, is_shared) VALUES ($1, $2, $3)
		RETURNING ` + officeColumns
	return scanOffice(r.pool.QueryRow(ctx, q, name, location, isShared))
}

// Get returns an office by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Office, error) {
	const q = `SELECT ` + officeColumns + ` FROM offices WHERE id = $1`
	return scanOffice(r.pool.QueryRow(ctx, q, id))
}

// Update changes an office's name and location.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, location string) (*models.Office, error) {
	const q = `UPDATE offices SET name = $1, location = $2, updated_at = NOW()
		WHERE id = $3 RETURNING ` + officeColumns
	return scanOffice(r.pool.QueryRow(ctx, q, name, location, id))
}

// Delete removes an office; its bookings cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM offices WHERE id = $1`, id)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ToggleShare flips the office's sharing flag and returns the updated row.
func (r *Repository) ToggleShare(ctx context.Context, id uuid.UUID) (*models.Office, error) {
	const q = `UPDATE offices SET is_shared = NOT is_shared, updated_at = NOW()
		WHERE id = $1 RETURNING ` + officeColumns
	return scanOffice(r.pool.QueryRow(ctx, q, id))
}

// List returns offices: every office when includePrivate, otherwise only
// shared ones.
func (r *Repository) List(ctx context.Context, includePrivate bool) ([]models.Office, error) {
	q := `SELECT ` + officeColumns + ` FROM offices`
	if !includePrivate {
		q += ` WHERE is_shared`
	}
	q += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()
	var list []models.Office
	for rows.Next() {
		var o models.Office
		if err := rows.Scan(&o.ID, &o.Name, &o.Location, &o.IsShared, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, o)
	}
	return list, database.WrapError(rows.Err())
}
