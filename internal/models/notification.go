package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification is a record the background worker writes for each processed
// event (booking activity, password-reset deliveries).
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
