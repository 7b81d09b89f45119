package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskly/backend/internal/authz"
	"github.com/deskly/backend/internal/middleware"
	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/internal/realtime"
	"github.com/deskly/backend/pkg/response"
)

const (
	opCreate     = "create"
	opCancel     = "cancel"
	opListByRoom = "list_by_room"
)

// Store is the persistence surface the reservations dispatcher needs.
type Store interface {
	HasConflict(ctx context.Context, cellID uuid.UUID, start, end time.Time) (bool, error)
	Create(ctx context.Context, roomID, cellID, userID uuid.UUID, start, end time.Time) (*models.Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID, from, to *time.Time) ([]models.Reservation, error)
}

// CellStore resolves reservation targets.
type CellStore interface {
	GetCell(ctx context.Context, cellID uuid.UUID) (*models.RoomCell, error)
}

// EventPublisher pushes availability events to feed subscribers.
type EventPublisher interface {
	Publish(topic realtime.Topic, event string, payload interface{})
}

// Handler dispatches desk reservation operations.
type Handler struct {
	store  Store
	cells  CellStore
	authz  *authz.Authorizer
	events EventPublisher // nil when the feed is disabled
	logger *zap.Logger
}

// NewHandler creates a reservations handler.
func NewHandler(store Store, cells CellStore, az *authz.Authorizer, events EventPublisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, cells: cells, authz: az, events: events, logger: logger}
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
	CellID    uuid.UUID `json:"cell_id"`
	DateStart time.Time `json:"date_start"`
	DateEnd   time.Time `json:"date_end"`
}

type cancelRequest struct {
	ReservationID uuid.UUID `json:"reservation_id"`
}

type listByRoomRequest struct {
	RoomID uuid.UUID  `json:"room_id"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dispatch handles POST /api/reservations.
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
	case opCreate:
		h.create(c, user, env.Data)
	case opCancel:
		h.cancel(c, user, env.Data)
	case opListByRoom:
		h.listByRoom(c, user, env.Data)
	default:
		response.BadRequest(c, "unknown operation: "+env.Operation)
	}
}

func (h *Handler) create(c *gin.Context, user *models.User, data json.RawMessage) {
	var req createRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if req.DateStart.IsZero() || req.DateEnd.IsZero() {
		response.BadRequest(c, "date_start and date_end are required")
		return
	}
	// date_start/date_end map to DATE columns. Drop any time-of-day here so
	// a 15:00 timestamp cannot slip past the overlap scan and then be
	// truncated on insert.
	req.DateStart = startOfDay(req.DateStart)
	req.DateEnd = startOfDay(req.DateEnd)
	if req.DateEnd.Before(req.DateStart) {
		response.BadRequest(c, "date_end must not be before date_start")
		return
	}

	cell, err := h.cells.GetCell(c.Request.Context(), req.CellID)
	if err != nil {
		response.StoreError(c, err, "cell not found")
		return
	}
	ok, err := h.authz.HasRoomAccess(c.Request.Context(), user, cell.RoomID)
	if err != nil {
		response.Internal(c, "failed to check room access")
		return
	}
	if !ok {
		response.Forbidden(c, "no access to this room")
		return
	}
	if cell.Type != models.CellTypeDesk {
		response.BadRequest(c, "only desk cells can be reserved")
		return
	}

	conflict, err := h.store.HasConflict(c.Request.Context(), req.CellID, req.DateStart, req.DateEnd)
	if err != nil {
		response.StoreError(c, err, "cell not found")
		return
	}
	if conflict {
		response.Conflict(c, "the desk is already reserved for these dates")
		return
	}

	res, err := h.store.Create(c.Request.Context(), cell.RoomID, req.CellID, user.ID, req.DateStart, req.DateEnd)
	if err != nil {
		response.StoreError(c, err, "cell not found")
		return
	}
	h.announce("reservation_created", res)
	response.Created(c, res)
}

func (h *Handler) cancel(c *gin.Context, user *models.User, data json.RawMessage) {
	var req cancelRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	res, err := h.store.Get(c.Request.Context(), req.ReservationID)
	if err != nil {
		response.StoreError(c, err, "reservation not found")
		return
	}
	if res.UserID != user.ID {
		admin, err := h.authz.IsRoomAdmin(c.Request.Context(), user, res.RoomID)
		if err != nil {
			response.Internal(c, "failed to check room access")
			return
		}
		if !admin {
			response.Forbidden(c, "cannot cancel another user's reservation")
			return
		}
	}
	if res.Status != models.ReservationActive {
		response.BadRequest(c, "reservation is not active")
		return
	}

	cancelled, err := h.store.Cancel(c.Request.Context(), req.ReservationID)
	if err != nil {
		response.StoreError(c, err, "reservation not found")
		return
	}
	h.announce("reservation_cancelled", cancelled)
	response.OK(c, cancelled)
}

func (h *Handler) listByRoom(c *gin.Context, user *models.User, data json.RawMessage) {
	var req listByRoomRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	ok, err := h.authz.HasRoomAccess(c.Request.Context(), user, req.RoomID)
	if err != nil {
		response.Internal(c, "failed to check room access")
		return
	}
	if !ok {
		response.Forbidden(c, "no access to this room")
		return
	}
	list, err := h.store.ListByRoom(c.Request.Context(), req.RoomID, req.From, req.To)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	if list == nil {
		list = []models.Reservation{}
	}
	response.OK(c, list)
}

func (h *Handler) announce(event string, res *models.Reservation) {
	if h.events != nil {
		h.events.Publish(realtime.RoomTopic(res.RoomID), event, res)
	}
}
