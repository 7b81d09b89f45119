package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

// Repository handles user administration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &u, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, string(role)))
}

// Get returns a user by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// Update applies the non-nil fields and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fullName *string, role *models.Role, isActive *bool) (*models.User, error) {
	const q = `UPDATE users
		SET full_name = COALESCE($2, full_name),
		    role = COALESCE($3, role),
		    is_active = COALESCE($4, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, id, fullName, role, isActive))
}

// Delete removes a user. Sessions, room grants, and reservations cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// List returns all users without password hashes.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	const q = `SELECT id, email, full_name, role, is_active, created_at
		FROM users
		ORDER BY full_name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()

	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
