package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomRole is a role scoped to a single room, independent of the user's
// platform role.
type RoomRole string

const (
	RoomRoleAdmin  RoomRole = "admin"
	RoomRoleMember RoomRole = "member"
)

// ValidRoomRole reports whether s is a known room-scoped role.
func ValidRoomRole(s string) bool {
	switch RoomRole(s) {
	case RoomRoleAdmin, RoomRoleMember:
		return true
	}
	return false
}

// CellType identifies what a grid cell represents on the floor plan.
type CellType string

const (
	CellTypeDesk    CellType = "desk"
	CellTypeBlocked CellType = "blocked"
	CellTypeMeeting CellType = "meeting"
)

// ValidCellType reports whether s is a known cell type.
func ValidCellType(s string) bool {
	switch CellType(s) {
	case CellTypeDesk, CellTypeBlocked, CellTypeMeeting:
		return true
	}
	return false
}

// WallOrientation is the direction a wall segment runs from its grid anchor.
type WallOrientation string

const (
	WallHorizontal WallOrientation = "horizontal"
	WallVertical   WallOrientation = "vertical"
)

// Room is a bookable space laid out as a grid of cells.
type Room struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	GridWidth    int       `json:"grid_width"`
	GridHeight   int       `json:"grid_height"`
	FloorPlanKey *string   `json:"floor_plan_key,omitempty"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoomSummary is a room plus the read-side aggregates shown in listings.
type RoomSummary struct {
	Room
	TotalDesks         int `json:"total_desks"`
	ActiveReservations int `json:"active_reservations"`
}

// RoomAccess grants a user a role scoped to one room.
type RoomAccess struct {
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      RoomRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomUser is a room member joined with their user record for listings.
type RoomUser struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     RoomRole  `json:"role"`
}

// RoomCell is one grid cell of a room layout.
type RoomCell struct {
	ID     uuid.UUID `json:"id"`
	RoomID uuid.UUID `json:"room_id"`
	X      int       `json:"x"`
	Y      int       `json:"y"`
	Type   CellType  `json:"type"`
	Label  string    `json:"label,omitempty"`
}

// RoomWall is one wall segment of a room layout.
type RoomWall struct {
	ID          uuid.UUID       `json:"id"`
	RoomID      uuid.UUID       `json:"room_id"`
	X           int             `json:"x"`
	Y           int             `json:"y"`
	Orientation WallOrientation `json:"orientation"`
}
