package notifications

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskly/backend/internal/middleware"
	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/response"
)

const opList = "list"

// Store is the persistence surface the notifications dispatcher needs.
type Store interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

// Handler dispatches notification operations.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
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

type listRequest struct {
	Limit int `json:"limit,omitempty"`
}

// Dispatch handles POST /api/notifications.
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
		h.list(c, user, env.Data)
	default:
		response.BadRequest(c, "unknown operation: "+env.Operation)
	}
}

// list returns the caller's own notifications, newest first.
func (h *Handler) list(c *gin.Context, user *models.User, data json.RawMessage) {
	var req listRequest
	if len(data) > 0 {
		if err := decode(data, &req); err != nil {
			response.BadRequest(c, "invalid data: "+err.Error())
			return
		}
	}
	list, err := h.store.ListByUser(c.Request.Context(), user.ID, req.Limit)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	response.OK(c, list)
}
