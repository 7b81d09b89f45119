package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

// Repository handles user and session persistence for authentication.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
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

// GetUserByID returns a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetUserByEmail returns a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

// CreateUser inserts a new user.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, string(role)))
}

// UpdatePassword replaces the user's password hash.
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, passwordHash, userID)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// CreateSession inserts a session row for the user.
func (r *Repository) CreateSession(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) (*models.Session, error) {
	const q = `INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)
		RETURNING token, user_id, expires_at, created_at`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, token, userID, expiresAt).Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &s, nil
}

// GetSession returns a session row by exact token match.
func (r *Repository) GetSession(ctx context.Context, token string) (*models.Session, error) {
	const q = `SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, token).Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &s, nil
}

// DeleteSession removes a session row (logout).
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return database.WrapError(err)
}

// DeleteUserSessions removes every session of a user (e.g. after a password reset).
func (r *Repository) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return database.WrapError(err)
}

// DeleteExpiredSessions purges sessions whose expiry has passed. Returns the
// number of rows removed.
func (r *Repository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, database.WrapError(err)
	}
	return tag.RowsAffected(), nil
}
