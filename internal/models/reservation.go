package models

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a desk reservation.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationRejected  ReservationStatus = "rejected"
)

// Reservation books one desk cell in a room for an inclusive date range.
type Reservation struct {
	ID        uuid.UUID         `json:"id"`
	RoomID    uuid.UUID         `json:"room_id"`
	CellID    uuid.UUID         `json:"cell_id"`
	UserID    uuid.UUID         `json:"user_id"`
	DateStart time.Time         `json:"date_start"`
	DateEnd   time.Time         `json:"date_end"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}
