package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/queue"
)

type stubNotificationStore struct {
	created []models.Notification
}

func (s *stubNotificationStore) Create(_ context.Context, userID *uuid.UUID, kind string, payload json.RawMessage) (*models.Notification, error) {
	n := models.Notification{ID: uuid.New(), UserID: userID, Kind: kind, Payload: payload, CreatedAt: time.Now()}
	s.created = append(s.created, n)
	return &n, nil
}

func jobWith(t *testing.T, jobType queue.JobType, payload interface{}) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: uuid.New().String(), Type: jobType, Payload: raw, CreatedAt: time.Now()}
}

func TestProcessBookingEvent(t *testing.T) {
	store := &stubNotificationStore{}
	p := NewProcessor(store, nil, nil)
	userID := uuid.New()

	job := jobWith(t, queue.JobTypeBookingEvent, queue.BookingEventPayload{
		Event:     "booking_created",
		OfficeID:  uuid.New(),
		BookingID: uuid.New(),
		UserID:    &userID,
	})
	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d notifications, want 1", len(store.created))
	}
	n := store.created[0]
	if n.Kind != "booking_created" {
		t.Errorf("kind = %q, want booking_created", n.Kind)
	}
	if n.UserID == nil || *n.UserID != userID {
		t.Errorf("user_id = %v, want %s", n.UserID, userID)
	}
}

func TestProcessAdminBlockEventHasNoUser(t *testing.T) {
	store := &stubNotificationStore{}
	p := NewProcessor(store, nil, nil)

	job := jobWith(t, queue.JobTypeBookingEvent, queue.BookingEventPayload{
		Event:     "booking_deleted",
		OfficeID:  uuid.New(),
		BookingID: uuid.New(),
	})
	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.created[0].UserID != nil {
		t.Error("admin-block notification should carry no user")
	}
}

func TestProcessPasswordReset(t *testing.T) {
	store := &stubNotificationStore{}
	p := NewProcessor(store, nil, nil)
	userID := uuid.New()

	job := jobWith(t, queue.JobTypePasswordReset, queue.PasswordResetPayload{
		UserID:         userID,
		RecipientEmail: "u@example.com",
		ResetToken:     "very-secret-token",
	})
	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	n := store.created[0]
	if n.Kind != "password_reset" {
		t.Errorf("kind = %q, want password_reset", n.Kind)
	}
	var body map[string]string
	if err := json.Unmarshal(n.Payload, &body); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if body["recipient_email"] != "u@example.com" {
		t.Errorf("recipient = %q, want u@example.com", body["recipient_email"])
	}
	if _, leaked := body["reset_token"]; leaked {
		t.Error("reset token must not be persisted")
	}
}

func TestProcessUnknownJobType(t *testing.T) {
	p := NewProcessor(&stubNotificationStore{}, nil, nil)
	job := &queue.Job{ID: uuid.New().String(), Type: "mystery"}
	if err := p.Process(context.Background(), job); err == nil {
		t.Error("Process should fail for unknown job types")
	}
}
