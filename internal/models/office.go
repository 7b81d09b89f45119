package models

import (
	"time"

	"github.com/google/uuid"
)

// Office is a private office bookable in 15-minute time slots. When
// IsShared is false only global admins may see or book it.
type Office struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	IsShared  bool      `json:"is_shared"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
