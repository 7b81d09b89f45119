package models

import (
	"time"

	"github.com/google/uuid"
)

// OfficeBooking reserves an office for the half-open interval
// [StartTime, EndTime). UserID is nil for admin blocks, which hold the
// slot without assigning an occupant.
type OfficeBooking struct {
	ID           uuid.UUID  `json:"id"`
	OfficeID     uuid.UUID  `json:"office_id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	IsAdminBlock bool       `json:"is_admin_block"`
	CreatedBy    uuid.UUID  `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Overlaps reports whether the booking's interval intersects [start, end)
// under half-open semantics: touching endpoints do not overlap.
func (b *OfficeBooking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}
