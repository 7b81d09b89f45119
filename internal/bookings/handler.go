package bookings

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
	"github.com/deskly/backend/pkg/queue"
	"github.com/deskly/backend/pkg/response"
)

const (
	opListByOffice     = "list_by_office"
	opListByUser       = "list_by_user"
	opCreate           = "create"
	opCreateAdminBlock = "create_admin_block"
	opDelete           = "delete"
)

// Store is the persistence surface the bookings dispatcher needs.
type Store interface {
	HasConflict(ctx context.Context, officeID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, officeID uuid.UUID, userID *uuid.UUID, start, end time.Time, isAdminBlock bool, createdBy uuid.UUID) (*models.OfficeBooking, error)
	Get(ctx context.Context, id uuid.UUID) (*models.OfficeBooking, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOffice(ctx context.Context, officeID uuid.UUID, from, to *time.Time) ([]models.OfficeBooking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.OfficeBooking, error)
}

// OfficeStore resolves booking targets.
type OfficeStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Office, error)
}

// EventPublisher pushes availability events to feed subscribers.
type EventPublisher interface {
	Publish(topic realtime.Topic, event string, payload interface{})
}

// Notifier delivers booking-activity jobs to the background worker.
type Notifier interface {
	EnqueueBookingEvent(ctx context.Context, payload queue.BookingEventPayload) error
}

// Handler dispatches office-booking operations.
type Handler struct {
	store    Store
	offices  OfficeStore
	events   EventPublisher // nil when the feed is disabled
	notifier Notifier       // nil when the queue is disabled
	logger   *zap.Logger
}

// NewHandler creates a bookings handler.
func NewHandler(store Store, offices OfficeStore, events EventPublisher, notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, offices: offices, events: events, notifier: notifier, logger: logger}
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

type listByOfficeRequest struct {
	OfficeID uuid.UUID  `json:"office_id"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}

type listByUserRequest struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

type createRequest struct {
	OfficeID  uuid.UUID  `json:"office_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	UserID    *uuid.UUID `json:"user_id,omitempty"` // admins may book on behalf of another user
}

type deleteRequest struct {
	BookingID uuid.UUID `json:"booking_id"`
}

// Dispatch handles POST /api/office-bookings.
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
	case opListByOffice:
		h.listByOffice(c, user, env.Data)
	case opListByUser:
		h.listByUser(c, user, env.Data)
	case opCreate:
		h.create(c, user, env.Data, false)
	case opCreateAdminBlock:
		h.create(c, user, env.Data, true)
	case opDelete:
		h.delete(c, user, env.Data)
	default:
		response.BadRequest(c, "unknown operation: "+env.Operation)
	}
}

func (h *Handler) listByOffice(c *gin.Context, user *models.User, data json.RawMessage) {
	var req listByOfficeRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	office, err := h.offices.Get(c.Request.Context(), req.OfficeID)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	if !authz.CanAccessOffice(user, office) {
		response.Forbidden(c, "no access to this office")
		return
	}
	list, err := h.store.ListByOffice(c.Request.Context(), req.OfficeID, req.From, req.To)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	if list == nil {
		list = []models.OfficeBooking{}
	}
	response.OK(c, list)
}

func (h *Handler) listByUser(c *gin.Context, user *models.User, data json.RawMessage) {
	target := user.ID
	if len(data) > 0 {
		var req listByUserRequest
		if err := decode(data, &req); err != nil {
			response.BadRequest(c, "invalid data: "+err.Error())
			return
		}
		if req.UserID != nil && *req.UserID != user.ID {
			if !authz.IsGlobalAdmin(user) {
				response.Forbidden(c, "cannot list another user's bookings")
				return
			}
			target = *req.UserID
		}
	}
	list, err := h.store.ListByUser(c.Request.Context(), target)
	if err != nil {
		response.StoreError(c, err, "user not found")
		return
	}
	if list == nil {
		list = []models.OfficeBooking{}
	}
	response.OK(c, list)
}

// create handles both regular bookings and admin blocks. Validation order:
// 15-minute boundaries, then interval ordering, then office existence and
// access, then the conflict scan. Each step short-circuits with its own
// error.
func (h *Handler) create(c *gin.Context, user *models.User, data json.RawMessage, adminBlock bool) {
	if adminBlock && !authz.IsGlobalAdmin(user) {
		response.Forbidden(c, "admin access required")
		return
	}
	var req createRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		response.BadRequest(c, "start_time and end_time are required")
		return
	}
	if err := ValidateInterval(req.StartTime, req.EndTime); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	office, err := h.offices.Get(c.Request.Context(), req.OfficeID)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	if !authz.CanAccessOffice(user, office) {
		response.Forbidden(c, "no access to this office")
		return
	}

	var occupant *uuid.UUID
	if !adminBlock {
		occupant = &user.ID
		if req.UserID != nil && *req.UserID != user.ID {
			if !authz.IsGlobalAdmin(user) {
				response.Forbidden(c, "cannot book on behalf of another user")
				return
			}
			occupant = req.UserID
		}
	}

	conflict, err := h.store.HasConflict(c.Request.Context(), req.OfficeID, req.StartTime, req.EndTime, nil)
	if err != nil {
		response.StoreError(c, err, "office not found")
		return
	}
	if conflict {
		response.Conflict(c, "the requested time overlaps an existing booking")
		return
	}

	booking, err := h.store.Create(c.Request.Context(), req.OfficeID, occupant, req.StartTime, req.EndTime, adminBlock, user.ID)
	if err != nil {
		// The exclusion constraint closes the race between the scan above
		// and this insert; surface it the same way as a scan hit.
		response.StoreError(c, err, "office not found")
		return
	}

	h.announce(c.Request.Context(), "booking_created", booking)
	response.Created(c, booking)
}

func (h *Handler) delete(c *gin.Context, user *models.User, data json.RawMessage) {
	var req deleteRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	booking, err := h.store.Get(c.Request.Context(), req.BookingID)
	if err != nil {
		response.StoreError(c, err, "booking not found")
		return
	}
	owns := booking.UserID != nil && *booking.UserID == user.ID
	if !authz.IsGlobalAdmin(user) && !owns && booking.CreatedBy != user.ID {
		response.Forbidden(c, "cannot delete another user's booking")
		return
	}
	if err := h.store.Delete(c.Request.Context(), req.BookingID); err != nil {
		response.StoreError(c, err, "booking not found")
		return
	}

	h.announce(c.Request.Context(), "booking_deleted", booking)
	response.OK(c, gin.H{"deleted": req.BookingID})
}

// announce pushes the change to feed subscribers and the worker queue.
// Both paths are best-effort; the mutation has already committed.
func (h *Handler) announce(ctx context.Context, event string, booking *models.OfficeBooking) {
	if h.events != nil {
		h.events.Publish(realtime.OfficeTopic(booking.OfficeID), event, booking)
	}
	if h.notifier != nil {
		payload := queue.BookingEventPayload{
			Event:     event,
			OfficeID:  booking.OfficeID,
			BookingID: booking.ID,
			UserID:    booking.UserID,
			StartTime: booking.StartTime,
			EndTime:   booking.EndTime,
		}
		if err := h.notifier.EnqueueBookingEvent(ctx, payload); err != nil {
			h.logger.Error("enqueue booking event failed", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		}
	}
}
