package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

type stubSessionStore struct {
	sessions map[string]*models.Session
	users    map[uuid.UUID]*models.User
}

func (s *stubSessionStore) GetSession(_ context.Context, token string) (*models.Session, error) {
	if sess, ok := s.sessions[token]; ok {
		return sess, nil
	}
	return nil, database.ErrNotFound
}

func (s *stubSessionStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func TestResolve(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	active := &models.User{ID: uuid.New(), Role: models.RoleMember, IsActive: true}
	inactive := &models.User{ID: uuid.New(), Role: models.RoleMember, IsActive: false}
	orphanID := uuid.New()

	store := &stubSessionStore{
		sessions: map[string]*models.Session{
			"live":     {Token: "live", UserID: active.ID, ExpiresAt: now.Add(time.Hour)},
			"expired":  {Token: "expired", UserID: active.ID, ExpiresAt: now.Add(-time.Minute)},
			"boundary": {Token: "boundary", UserID: active.ID, ExpiresAt: now},
			"inactive": {Token: "inactive", UserID: inactive.ID, ExpiresAt: now.Add(time.Hour)},
			"orphan":   {Token: "orphan", UserID: orphanID, ExpiresAt: now.Add(time.Hour)},
		},
		users: map[uuid.UUID]*models.User{
			active.ID:   active,
			inactive.ID: inactive,
		},
	}
	r := NewResolver(store)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("valid session", func(t *testing.T) {
		u, err := r.Resolve(ctx, "live")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if u.ID != active.ID {
			t.Errorf("resolved user %s, want %s", u.ID, active.ID)
		}
	})

	cases := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty token", "", ErrSessionInvalid},
		{"unknown token", "nope", ErrSessionInvalid},
		{"expired session", "expired", ErrSessionInvalid},
		// A session expiring exactly now is no longer valid.
		{"expiry boundary", "boundary", ErrSessionInvalid},
		{"inactive user", "inactive", ErrUserInactive},
		{"deleted user", "orphan", ErrUserInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Resolve(ctx, tc.token)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Resolve(%q) = %v, want %v", tc.token, err, tc.wantErr)
			}
		})
	}
}

func TestGenerateSessionToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("GenerateSessionToken: %v", err)
		}
		if len(tok) < 40 {
			t.Fatalf("token too short: %q", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = struct{}{}
	}
}
