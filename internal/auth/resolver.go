package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

var (
	// ErrSessionInvalid means the token is missing, unknown or expired (401).
	ErrSessionInvalid = errors.New("invalid or expired session")
	// ErrUserInactive means the session resolved but its user is deactivated
	// or gone (403).
	ErrUserInactive = errors.New("user inactive or missing")
)

// SessionStore is the read side of session resolution.
type SessionStore interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolver turns an opaque session token into the requesting user. It is a
// pure read gate, executed once per incoming operation; nothing is cached
// between requests.
type Resolver struct {
	store SessionStore
	now   func() time.Time
}

// NewResolver creates a session resolver.
func NewResolver(store SessionStore) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Resolve looks up an unexpired session by exact token match, then the
// associated active user.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}
	sess, err := r.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if sess.Expired(r.now()) {
		return nil, ErrSessionInvalid
	}
	user, err := r.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserInactive
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// GenerateSessionToken returns a new opaque session token (32 random bytes,
// base64url without padding).
func GenerateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
