package users

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
	users map[uuid.UUID]*models.User
}

func newStubStore(users ...*models.User) *stubStore {
	s := &stubStore{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubStore) Create(_ context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error) {
	u := &models.User{ID: uuid.New(), Email: email, Password: passwordHash, FullName: fullName, Role: role, IsActive: true}
	s.users[u.ID] = u
	return u, nil
}

func (s *stubStore) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func (s *stubStore) Update(_ context.Context, id uuid.UUID, fullName *string, role *models.Role, isActive *bool) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if fullName != nil {
		u.FullName = *fullName
	}
	if role != nil {
		u.Role = *role
	}
	if isActive != nil {
		u.IsActive = *isActive
	}
	return u, nil
}

func (s *stubStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.users[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *stubStore) List(_ context.Context) ([]models.UserPublic, error) {
	var out []models.UserPublic
	for _, u := range s.users {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

func userWith(role models.Role) *models.User {
	return &models.User{ID: uuid.New(), Email: "u@example.com", Role: role, IsActive: true}
}

func setupRouter(h *Handler, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/users", func(c *gin.Context) {
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
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUsersRequireGlobalAdmin(t *testing.T) {
	h := NewHandler(newStubStore(), nil)
	r := setupRouter(h, userWith(models.RoleMember))
	for _, op := range []string{"create", "update", "delete", "list"} {
		w := dispatch(t, r, op, struct{}{})
		if w.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", op, w.Code)
		}
	}
}

func TestUserCreate(t *testing.T) {
	t.Run("admin creates member", func(t *testing.T) {
		store := newStubStore()
		r := setupRouter(NewHandler(store, nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "create", createRequest{Email: "New@Example.com", Password: "secret", FullName: "New User"})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
		}
		var created models.UserPublic
		if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if created.Email != "new@example.com" {
			t.Errorf("email = %q, want lowercased", created.Email)
		}
		if created.Role != models.RoleMember {
			t.Errorf("role = %q, want member default", created.Role)
		}
		if stored := store.users[created.ID]; stored.Password == "secret" {
			t.Error("password stored in plaintext")
		}
	})

	t.Run("admin cannot grant super_admin", func(t *testing.T) {
		r := setupRouter(NewHandler(newStubStore(), nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "create", createRequest{Email: "x@example.com", Password: "p", FullName: "X", Role: "super_admin"})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("super_admin grants super_admin", func(t *testing.T) {
		r := setupRouter(NewHandler(newStubStore(), nil), userWith(models.RoleSuperAdmin))
		w := dispatch(t, r, "create", createRequest{Email: "x@example.com", Password: "p", FullName: "X", Role: "super_admin"})
		if w.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
		}
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		r := setupRouter(NewHandler(newStubStore(), nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "create", createRequest{Email: "x@example.com", Password: "p", FullName: "X", Role: "owner"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestUserUpdateSuperAdminRules(t *testing.T) {
	target := userWith(models.RoleMember)
	superTarget := userWith(models.RoleSuperAdmin)
	superRole := "super_admin"
	newName := "Renamed"

	t.Run("admin cannot promote to super_admin", func(t *testing.T) {
		r := setupRouter(NewHandler(newStubStore(target), nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "update", updateRequest{UserID: target.ID, Role: &superRole})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("admin cannot touch a super_admin", func(t *testing.T) {
		r := setupRouter(NewHandler(newStubStore(superTarget), nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "update", updateRequest{UserID: superTarget.ID, FullName: &newName})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("admin renames a member", func(t *testing.T) {
		store := newStubStore(target)
		r := setupRouter(NewHandler(store, nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "update", updateRequest{UserID: target.ID, FullName: &newName})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		if store.users[target.ID].FullName != newName {
			t.Errorf("full name = %q, want %q", store.users[target.ID].FullName, newName)
		}
	})

	t.Run("missing user is 404", func(t *testing.T) {
		r := setupRouter(NewHandler(newStubStore(), nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "update", updateRequest{UserID: uuid.New(), FullName: &newName})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestUserDelete(t *testing.T) {
	t.Run("cannot delete self", func(t *testing.T) {
		actor := userWith(models.RoleAdmin)
		r := setupRouter(NewHandler(newStubStore(actor), nil), actor)
		w := dispatch(t, r, "delete", deleteRequest{UserID: actor.ID})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("admin cannot delete super_admin", func(t *testing.T) {
		superUser := userWith(models.RoleSuperAdmin)
		r := setupRouter(NewHandler(newStubStore(superUser), nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "delete", deleteRequest{UserID: superUser.ID})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("admin deletes member", func(t *testing.T) {
		target := userWith(models.RoleMember)
		store := newStubStore(target)
		r := setupRouter(NewHandler(store, nil), userWith(models.RoleAdmin))
		w := dispatch(t, r, "delete", deleteRequest{UserID: target.ID})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		if _, ok := store.users[target.ID]; ok {
			t.Error("user still present after delete")
		}
	})
}
