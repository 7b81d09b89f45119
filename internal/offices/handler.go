package offices

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deskly/backend/internal/authz"
	"github.com/deskly/backend/internal/middleware"
	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/response"
)

const (
	opList        = "list"
	opGet         = "get"
	opCreate      = "create"
	opUpdate      = "update"
	opDelete      = "delete"
	opToggleShare = "toggle_share"
)

// Store is the persistence surface the offices dispatcher needs.
type Store interface {
	Create(ctx context.Context, name, location string, isShared bool) (*models.Office, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Office, error)
	Update(ctx context.Context, id uuid.UUID, name, location string) (*models.Office, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ToggleShare(ctx context.Context, id uuid.UUID) (*models.Office, error)
	List(ctx context.Context, includePrivate bool) ([]models.Office, error)
}

// Handler dispatches office operations.
type Handler struct {
	store Store
}

// NewHandler creates an offices handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
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

type officeRequest struct {
	OfficeID uuid.UUID `json:"office_id"`
}

type createRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	IsShared bool   `json:"is_shared"`
}

type updateRequest struct {
	OfficeID uuid.UUID `json:"office_id"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
}

// Dispatch handles POST /api/offices.
func (h *Handler) Dispatch(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "missing user context")
		return
	}
	var env envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	switch env.Operation {
	case opList:
		h.list(c, user)
	case opGet:
		h.get(c, user, env.Data)
	case opCreate:
		h.create(c, user, env.Data)
	case opUpdate:
		h.update(c, user, env.Data)
	case opDelete:
		h.delete(c, user, env.Data)
	case opToggleShare:
		h.toggleShare(c, user, env.Data)
	default:
		response.BadRequest(c, "unknown operation: "+env.Operation)
	}
}

func (h *Handler) requireAdmin(c *gin.Context, user *models.User) bool {
	if !authz.IsGlobalAdmin(user) {
		response.Forbidden(c, "admin access required")
		return false
	}
	return true
}

func (h *Handler) list(c *gin.Context, user *models.User) {
	list, err := h.store.List(c.Request.Context(), authz.IsGlobalAdmin(user))
	if err != nil {
		response.StoreError(c, err, "offices not found")
		return
	}
	if list == nil {
		list = []models.Office{}
	}
	response.OK(c, list)
}

func (h *Handler) get(c *gin.Context, user *models.User, data json.RawMessage) {
	var req officeRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	office, err := h.store.Get(c.Request.Context(), req.OfficeID)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	if !authz.CanAccessOffice(user, office) {
		response.Forbidden(c, "no access to this office")
		return
	}
	response.OK(c, office)
}

func (h *Handler) create(c *gin.Context, user *models.User, data json.RawMessage) {
	if !h.requireAdmin(c, user) {
		return
	}
	var req createRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if req.Name == "" {
		response.BadRequest(c, "name is required")
		return
	}
	office, err := h.store.Create(c.Request.Context(), req.Name, req.Location, req.IsShared)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	response.Created(c, office)
}

func (h *Handler) update(c *gin.Context, user *models.User, data json.RawMessage) {
	if !h.requireAdmin(c, user) {
		return
	}
	var req updateRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	current, err := h.store.Get(c.Request.Context(), req.OfficeID)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	if req.Name == "" {
		req.Name = current.Name
	}
	if req.Location == "" {
		req.Location = current.Location
	}
	office, err := h.store.Update(c.Request.Context(), req.OfficeID, req.Name, req.Location)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	response.OK(c, office)
}

func (h *Handler) delete(c *gin.Context, user *models.User, data json.RawMessage) {
	if !h.requireAdmin(c, user) {
		return
	}
	var req officeRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if err := h.store.Delete(c.Request.Context(), req.OfficeID); err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	response.OK(c, gin.H{"deleted": req.OfficeID})
}

func (h *Handler) toggleShare(c *gin.Context, user *models.User, data json.RawMessage) {
	if !h.requireAdmin(c, user) {
		return
	}
	var req officeRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	office, err := h.store.ToggleShare(c.Request.Context(), req.OfficeID)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	response.OK(c, office)
}
