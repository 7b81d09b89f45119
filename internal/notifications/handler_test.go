package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deskly/backend/internal/middleware"
	"github.com/deskly/backend/internal/models"
)

type stubStore struct {
	byUser    map[uuid.UUID][]models.Notification
	lastLimit int
}

func (s *stubStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	s.lastLimit = limit
	return s.byUser[userID], nil
}

func setupRouter(h *Handler, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/notifications", func(c *gin.Context) {
		c.Set(middleware.ContextUser, user)
		h.Dispatch(c)
	})
	return r
}

func dispatch(t *testing.T, r *gin.Engine, operation string, data interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	body, _ := json.Marshal(map[string]json.RawMessage{
		"operation": json.RawMessage(fmt.Sprintf("%q", operation)),
		"data":      raw,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNotificationList(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: models.RoleMember, IsActive: true}
	other := &models.User{ID: uuid.New(), Role: models.RoleMember, IsActive: true}
	store := &stubStore{byUser: map[uuid.UUID][]models.Notification{
		user.ID: {
			{ID: uuid.New(), UserID: &user.ID, Kind: "booking_created"},
			{ID: uuid.New(), UserID: &user.ID, Kind: "booking_deleted"},
		},
		other.ID: {
			{ID: uuid.New(), UserID: &other.ID, Kind: "booking_created"},
		},
	}}
	h := NewHandler(store, nil)

	t.Run("returns only the caller's notifications", func(t *testing.T) {
		w := dispatch(t, setupRouter(h, user), "list", listRequest{})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		var got []models.Notification
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("len = %d, want 2", len(got))
		}
	})

	t.Run("limit is forwarded to the store", func(t *testing.T) {
		w := dispatch(t, setupRouter(h, user), "list", listRequest{Limit: 5})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if store.lastLimit != 5 {
			t.Errorf("limit = %d, want 5", store.lastLimit)
		}
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		fresh := &models.User{ID: uuid.New(), Role: models.RoleMember, IsActive: true}
		w := dispatch(t, setupRouter(h, fresh), "list", listRequest{})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if body := bytes.TrimSpace(w.Body.Bytes()); !bytes.Equal(body, []byte("[]")) {
			t.Errorf("body = %s, want []", body)
		}
	})

	t.Run("unknown operation rejected", func(t *testing.T) {
		w := dispatch(t, setupRouter(h, user), "purge", listRequest{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}
