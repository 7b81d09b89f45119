// Package authz holds the authorization predicates gating every dispatched
// operation. Predicates are evaluated fresh per request; access can change
// between requests, so nothing here caches.
package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/deskly/backend/internal/models"
)

// RoomAccessStore looks up a user's role grant for one room.
type RoomAccessStore interface {
	// RoomRole returns the user's room-scoped role and whether a grant exists.
	RoomRole(ctx context.Context, roomID, userID uuid.UUID) (models.RoomRole, bool, error)
}

// Authorizer evaluates room-scoped predicates against the access store.
type Authorizer struct {
	rooms RoomAccessStore
}

// New creates an authorizer backed by the given room-access store.
func New(rooms RoomAccessStore) *Authorizer {
	return &Authorizer{rooms: rooms}
}

// IsGlobalAdmin reports whether the user holds a platform admin role.
func IsGlobalAdmin(u *models.User) bool {
	return u != nil && (u.Role == models.RoleAdmin || u.Role == models.RoleSuperAdmin)
}

// CanAccessOffice reports whether the user may see and book the office:
// global admins always, everyone else only when the office is shared.
func CanAccessOffice(u *models.User, office *models.Office) bool {
	if office == nil {
		return false
	}
	return IsGlobalAdmin(u) || office.IsShared
}

// IsRoomAdmin reports whether the user administers the room. A super_admin
// short-circuits; otherwise the room grant is authoritative, regardless of
// the user's platform role.
func (a *Authorizer) IsRoomAdmin(ctx context.Context, u *models.User, roomID uuid.UUID) (bool, error) {
	if u == nil {
		return false, nil
	}
	if u.Role == models.RoleSuperAdmin {
		return true, nil
	}
	role, ok, err := a.rooms.RoomRole(ctx, roomID, u.ID)
	if err != nil {
		return false, err
	}
	return ok && role == models.RoomRoleAdmin, nil
}

// HasRoomAccess reports whether the user may read the room: super_admin, or
// any room grant (admin or member).
func (a *Authorizer) HasRoomAccess(ctx context.Context, u *models.User, roomID uuid.UUID) (bool, error) {
	if u == nil {
		return false, nil
	}
	if u.Role == models.RoleSuperAdmin {
		return true, nil
	}
	_, ok, err := a.rooms.RoomRole(ctx, roomID, u.ID)
	if err != nil {
		return false, err
	}
	return ok, nil
}
