package users

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskly/backend/internal/authz"
	"github.com/deskly/backend/internal/middleware"
	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/response"
	"github.com/deskly/backend/pkg/utils"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opList   = "list"
)

// Store is the persistence surface the users dispatcher needs.
type Store interface {
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, fullName *string, role *models.Role, isActive *bool) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.UserPublic, error)
}

// Handler dispatches user administration operations.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

type envelope struct {
	Operation string          `json:"operation" binding:"required"`
	Data      json.RawMessage `json:"data"`
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return errors.New("missing data")
	}
	return json.Unmarshal(data, v)
}

type createRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type updateRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	FullName *string   `json:"full_name,omitempty"`
	Role     *string   `json:"role,omitempty"`
	IsActive *bool     `json:"is_active,omitempty"`
}

type deleteRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// Dispatch handles POST /api/users. All operations require a global admin.
func (h *Handler) Dispatch(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "missing user context")
		return
	}
	if !authz.IsGlobalAdmin(user) {
		response.Forbidden(c, "admin access required")
		return
	}
	var env envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	switch env.Operation {
	case opCreate:
		h.create(c, user, env.Data)
	case opUpdate:
		h.update(c, user, env.Data)
	case opDelete:
		h.delete(c, user, env.Data)
	case opList:
		h.list(c)
	default:
		response.BadRequest(c, "unknown operation: "+env.Operation)
	}
}

func (h *Handler) create(c *gin.Context, actor *models.User, data json.RawMessage) {
	var req createRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		response.BadRequest(c, "email, password, and full_name are required")
		return
	}
	role := models.RoleMember
	if req.Role != "" {
		if !models.ValidRole(req.Role) {
			response.BadRequest(c, "invalid role: "+req.Role)
			return
		}
		role = models.Role(req.Role)
	}
	if role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		response.Forbidden(c, "only a super admin can grant super admin")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	created, err := h.store.Create(c.Request.Context(), req.Email, hash, req.FullName, role)
	if err != nil {
		response.StoreError(c, err, "user not found")
		return
	}
	h.logger.Info("user created",
		zap.String("user_id", created.ID.String()),
		zap.String("role", string(created.Role)),
		zap.String("created_by", actor.ID.String()))
	response.Created(c, created.ToPublic())
}

func (h *Handler) update(c *gin.Context, actor *models.User, data json.RawMessage) {
	var req updateRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	target, err := h.store.Get(c.Request.Context(), req.UserID)
	if err != nil {
		response.StoreError(c, err, "user not found")
		return
	}

	var role *models.Role
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			response.BadRequest(c, "invalid role: "+*req.Role)
			return
		}
		r := models.Role(*req.Role)
		role = &r
	}
	// Touching a super admin, or granting the role, takes a super admin.
	grantsSuper := role != nil && *role == models.RoleSuperAdmin
	if (target.Role == models.RoleSuperAdmin || grantsSuper) && actor.Role != models.RoleSuperAdmin {
		response.Forbidden(c, "only a super admin can manage super admins")
		return
	}

	updated, err := h.store.Update(c.Request.Context(), req.UserID, req.FullName, role, req.IsActive)
	if err != nil {
		response.StoreError(c, err, "user not found")
		return
	}
	response.OK(c, updated.ToPublic())
}

func (h *Handler) delete(c *gin.Context, actor *models.User, data json.RawMessage) {
	var req deleteRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if req.UserID == actor.ID {
		response.BadRequest(c, "cannot delete your own account")
		return
	}
	target, err := h.store.Get(c.Request.Context(), req.UserID)
	if err != nil {
		response.StoreError(c, err, "user not found")
		return
	}
	if target.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		response.Forbidden(c, "only a super admin can manage super admins")
		return
	}
	if err := h.store.Delete(c.Request.Context(), req.UserID); err != nil {
		response.StoreError(c, err, "user not found")
		return
	}
	h.logger.Info("user deleted",
		zap.String("user_id", req.UserID.String()),
		zap.String("deleted_by", actor.ID.String()))
	response.OK(c, gin.H{"deleted": req.UserID})
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.StoreError(c, err, "users not found")
		return
	}
	if list == nil {
		list = []models.UserPublic{}
	}
	response.OK(c, list)
}
