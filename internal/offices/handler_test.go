package offices

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
	"github.com/deskly/backend/pkg/database"
)

type stubStore struct {
	offices map[uuid.UUID]*models.Office

	lastIncludePrivate bool
}

func newStubStore(offices ...*models.Office) *stubStore {
	s := &stubStore{offices: make(map[uuid.UUID]*models.Office)}
	for _, o := range offices {
		s.offices[o.ID] = o
	}
	return s
}

func (s *stubStore) Create(_ context.Context, name, location string, isShared bool) (*models.Office, error) {
	o := &models.Office{ID: uuid.New(), Name: name, Location: location, IsShared: isShared}
	s.offices[o.ID] = o
	return o, nil
}

func (s *stubStore) Get(_ context.Context, id uuid.UUID) (*models.Office, error) {
	if o, ok := s.offices[id]; ok {
		return o, nil
	}
	return nil, database.ErrNotFound
}

func (s *stubStore) Update(_ context.Context, id uuid.UUID, name, location string) (*models.Office, error) {
	o, ok := s.offices[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	o.Name, o.Location = name, location
	return o, nil
}

func (s *stubStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.offices[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.offices, id)
	return nil
}

func (s *stubStore) ToggleShare(_ context.Context, id uuid.UUID) (*models.Office, error) {
	o, ok := s.offices[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	o.IsShared = !o.IsShared
	return o, nil
}

func (s *stubStore) List(_ context.Context, includePrivate bool) ([]models.Office, error) {
	s.lastIncludePrivate = includePrivate
	var out []models.Office
	for _, o := range s.offices {
		if includePrivate || o.IsShared {
			out = append(out, *o)
		}
	}
	return out, nil
}

func setupRouter(h *Handler, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/offices", func(c *gin.Context) {
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
	req := httptest.NewRequest(http.MethodPost, "/api/offices", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func member() *models.User {
	return &models.User{ID: uuid.New(), Role: models.RoleMember, IsActive: true}
}

func admin() *models.User {
	return &models.User{ID: uuid.New(), Role: models.RoleAdmin, IsActive: true}
}

func TestOfficeGetAccess(t *testing.T) {
	shared := &models.Office{ID: uuid.New(), Name: "Shared", IsShared: true}
	private := &models.Office{ID: uuid.New(), Name: "Private", IsShared: false}
	store := newStubStore(shared, private)
	h := NewHandler(store)

	cases := []struct {
		name       string
		user       *models.User
		officeID   uuid.UUID
		wantStatus int
	}{
		{"member sees shared", member(), shared.ID, http.StatusOK},
		{"member blocked from private", member(), private.ID, http.StatusForbidden},
		{"admin sees private", admin(), private.ID, http.StatusOK},
		{"missing office is 404", admin(), uuid.New(), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouter(h, tc.user)
			w := dispatch(t, r, "get", officeRequest{OfficeID: tc.officeID})
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestOfficeListScoping(t *testing.T) {
	store := newStubStore(
		&models.Office{ID: uuid.New(), IsShared: true},
		&models.Office{ID: uuid.New(), IsShared: false},
	)
	h := NewHandler(store)

	t.Run("member sees shared offices only", func(t *testing.T) {
		w := dispatch(t, setupRouter(h, member()), "list", struct{}{})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if store.lastIncludePrivate {
			t.Error("member list should exclude private offices")
		}
		var list []models.Office
		if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("member sees %d offices, want 1", len(list))
		}
	})

	t.Run("admin sees all offices", func(t *testing.T) {
		w := dispatch(t, setupRouter(h, admin()), "list", struct{}{})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !store.lastIncludePrivate {
			t.Error("admin list should include private offices")
		}
	})
}

func TestOfficeMutationsRequireAdmin(t *testing.T) {
	office := &models.Office{ID: uuid.New(), Name: "HQ", IsShared: true}

	mutations := []struct {
		op   string
		data interface{}
	}{
		{"create", createRequest{Name: "New Office"}},
		{"update", updateRequest{OfficeID: office.ID, Name: "Renamed"}},
		{"delete", officeRequest{OfficeID: office.ID}},
		{"toggle_share", officeRequest{OfficeID: office.ID}},
	}
	for _, m := range mutations {
		t.Run(m.op+" forbidden for member", func(t *testing.T) {
			h := NewHandler(newStubStore(office))
			w := dispatch(t, setupRouter(h, member()), m.op, m.data)
			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403 (body %s)", w.Code, w.Body.String())
			}
		})
	}

	t.Run("toggle_share flips the flag", func(t *testing.T) {
		store := newStubStore(&models.Office{ID: office.ID, Name: "HQ", IsShared: false})
		h := NewHandler(store)
		w := dispatch(t, setupRouter(h, admin()), "toggle_share", officeRequest{OfficeID: office.ID})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		if !store.offices[office.ID].IsShared {
			t.Error("office should be shared after toggle")
		}
	})
}
