package rooms

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
	"github.com/deskly/backend/pkg/response"
	"github.com/deskly/backend/pkg/storage"
)

// Operation names accepted by the rooms dispatcher. The set is closed: any
// other name is rejected before authorization runs.
const (
	opCreate             = "create"
	opUpdate             = "update"
	opDelete             = "delete"
	opList               = "list"
	opGet                = "get"
	opCreateCell         = "create_cell"
	opUpdateCell         = "update_cell"
	opDeleteCell         = "delete_cell"
	opCreateWall         = "create_wall"
	opDeleteWall         = "delete_wall"
	opDeleteAllCells     = "delete_all_cells"
	opListRoomUsers      = "list_room_users"
	opAddRoomUser        = "add_room_user"
	opRemoveRoomUser     = "remove_room_user"
	opListAvailableUsers = "list_available_users"
	opFloorPlanUploadURL = "floor_plan_upload_url"
	opFloorPlanGetURL    = "floor_plan_download_url"
)

// Store is the persistence surface the rooms dispatcher needs.
type Store interface {
	authz.RoomAccessStore

	Create(ctx context.Context, name string, gridWidth, gridHeight int, createdBy uuid.UUID) (*models.Room, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Room, error)
	Update(ctx context.Context, id uuid.UUID, name string, gridWidth, gridHeight int) (*models.Room, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetFloorPlanKey(ctx context.Context, id uuid.UUID, key string) error
	ListAll(ctx context.Context) ([]models.RoomSummary, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.RoomSummary, error)

	ListCells(ctx context.Context, roomID uuid.UUID) ([]models.RoomCell, error)
	CreateCell(ctx context.Context, roomID uuid.UUID, x, y int, cellType models.CellType, label string) (*models.RoomCell, error)
	UpdateCell(ctx context.Context, roomID, cellID uuid.UUID, cellType models.CellType, label string) (*models.RoomCell, error)
	DeleteCell(ctx context.Context, roomID, cellID uuid.UUID) error
	DeleteAllCells(ctx context.Context, roomID uuid.UUID) error
	ListWalls(ctx context.Context, roomID uuid.UUID) ([]models.RoomWall, error)
	CreateWall(ctx context.Context, roomID uuid.UUID, x, y int, orientation models.WallOrientation) (*models.RoomWall, error)
	DeleteWall(ctx context.Context, roomID, wallID uuid.UUID) error

	ListRoomUsers(ctx context.Context, roomID uuid.UUID) ([]models.RoomUser, error)
	AddRoomUser(ctx context.Context, roomID, userID uuid.UUID, role models.RoomRole) error
	RemoveRoomUser(ctx context.Context, roomID, userID uuid.UUID) error
	ListAvailableUsers(ctx context.Context, roomID uuid.UUID) ([]models.UserPublic, error)
}

// FloorPlanStorage issues pre-signed URLs for floor-plan images.
type FloorPlanStorage interface {
	GeneratePresignedUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
	DeleteFloorPlan(ctx context.Context, key string) error
}

// Handler dispatches room operations.
type Handler struct {
	store  Store
	authz  *authz.Authorizer
	plans  FloorPlanStorage // nil when S3 is not configured
	logger *zap.Logger
}

// NewHandler creates a rooms handler.
func NewHandler(store Store, az *authz.Authorizer, plans FloorPlanStorage, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, authz: az, plans: plans, logger: logger}
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

// Per-operation payloads.
type createRequest struct {
	Name       string `json:"name"`
	GridWidth  int    `json:"grid_width"`
	GridHeight int    `json:"grid_height"`
}

type updateRequest struct {
	RoomID     uuid.UUID `json:"room_id"`
	Name       string    `json:"name"`
	GridWidth  int       `json:"grid_width"`
	GridHeight int       `json:"grid_height"`
}

type roomRequest struct {
	RoomID uuid.UUID `json:"room_id"`
}

type createCellRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	X      int       `json:"x"`
	Y      int       `json:"y"`
	Type   string    `json:"type"`
	Label  string    `json:"label"`
}

type updateCellRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	CellID uuid.UUID `json:"cell_id"`
	Type   string    `json:"type"`
	Label  string    `json:"label"`
}

type cellRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	CellID uuid.UUID `json:"cell_id"`
}

type createWallRequest struct {
	RoomID      uuid.UUID `json:"room_id"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Orientation string    `json:"orientation"`
}

type wallRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	WallID uuid.UUID `json:"wall_id"`
}

type roomUserRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

type floorPlanUploadRequest struct {
	RoomID   uuid.UUID `json:"room_id"`
	Filename string    `json:"filename"`
}

// roomDetail is the get response: the room plus its layout.
type roomDetail struct {
	models.Room
	Cells []models.RoomCell `json:"cells"`
	Walls []models.RoomWall `json:"walls"`
}

// Dispatch handles POST /api/rooms. The session middleware has already
// resolved the user; each operation re-checks its own predicate.
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
	case opUpdate:
		h.update(c, user, env.Data)
	case opDelete:
		h.delete(c, user, env.Data)
	case opList:
		h.list(c, user)
	case opGet:
		h.get(c, user, env.Data)
	case opCreateCell:
		h.createCell(c, user, env.Data)
	case opUpdateCell:
		h.updateCell(c, user, env.Data)
	case opDeleteCell:
		h.deleteCell(c, user, env.Data)
	case opCreateWall:
		h.createWall(c, user, env.Data)
	case opDeleteWall:
		h.deleteWall(c, user, env.Data)
	case opDeleteAllCells:
		h.deleteAllCells(c, user, env.Data)
	case opListRoomUsers:
		h.listRoomUsers(c, user, env.Data)
	case opAddRoomUser:
		h.addRoomUser(c, user, env.Data)
	case opRemoveRoomUser:
		h.removeRoomUser(c, user, env.Data)
	case opListAvailableUsers:
		h.listAvailableUsers(c, user, env.Data)
	case opFloorPlanUploadURL:
		h.floorPlanUploadURL(c, user, env.Data)
	case opFloorPlanGetURL:
		h.floorPlanDownloadURL(c, user, env.Data)
	default:
		response.BadRequest(c, "unknown operation: "+env.Operation)
	}
}

// requireRoom resolves the room (404 when absent) and checks the room-admin
// predicate when adminOnly, otherwise any room access.
func (h *Handler) requireRoom(c *gin.Context, user *models.User, roomID uuid.UUID, adminOnly bool) *models.Room {
	if roomID == uuid.Nil {
		response.BadRequest(c, "room_id is required")
		return nil
	}
	room, err := h.store.Get(c.Request.Context(), roomID)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return nil
	}
	var ok bool
	if adminOnly {
		ok, err = h.authz.IsRoomAdmin(c.Request.Context(), user, roomID)
	} else {
		ok, err = h.authz.HasRoomAccess(c.Request.Context(), user, roomID)
	}
	if err != nil {
		response.Internal(c, err.Error())
		return nil
	}
	if !ok {
		if adminOnly {
			response.Forbidden(c, "room admin access required")
		} else {
			response.Forbidden(c, "no access to this room")
		}
		return nil
	}
	return room
}

func (h *Handler) create(c *gin.Context, user *models.User, data json.RawMessage) {
	if !authz.IsGlobalAdmin(user) {
		response.Forbidden(c, "admin access required")
		return
	}
	var req createRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if req.Name == "" || req.GridWidth <= 0 || req.GridHeight <= 0 {
		response.BadRequest(c, "name, grid_width and grid_height are required")
		return
	}
	room, err := h.store.Create(c.Request.Context(), req.Name, req.GridWidth, req.GridHeight, user.ID)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	response.Created(c, room)
}

func (h *Handler) update(c *gin.Context, user *models.User, data json.RawMessage) {
	var req updateRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	room := h.requireRoom(c, user, req.RoomID, true)
	if room == nil {
		return
	}
	if req.Name == "" {
		req.Name = room.Name
	}
	if req.GridWidth <= 0 {
		req.GridWidth = room.GridWidth
	}
	if req.GridHeight <= 0 {
		req.GridHeight = room.GridHeight
	}
	updated, err := h.store.Update(c.Request.Context(), req.RoomID, req.Name, req.GridWidth, req.GridHeight)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	response.OK(c, updated)
}

func (h *Handler) delete(c *gin.Context, user *models.User, data json.RawMessage) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	room := h.requireRoom(c, user, req.RoomID, true)
	if room == nil {
		return
	}
	if err := h.store.Delete(c.Request.Context(), req.RoomID); err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	if h.plans != nil && room.FloorPlanKey != nil {
		if err := h.plans.DeleteFloorPlan(c.Request.Context(), *room.FloorPlanKey); err != nil {
			h.logger.Warn("floor plan cleanup failed", zap.Error(err), zap.String("room_id", room.ID.String()))
		}
	}
	response.OK(c, gin.H{"deleted": req.RoomID})
}

func (h *Handler) list(c *gin.Context, user *models.User) {
	var (
		list []models.RoomSummary
		err  error
	)
	if user.Role == models.RoleSuperAdmin {
		list, err = h.store.ListAll(c.Request.Context())
	} else {
		list, err = h.store.ListForUser(c.Request.Context(), user.ID)
	}
	if err != nil {
		response.StoreError(c, err, "rooms not found")
		return
	}
	if list == nil {
		list = []models.RoomSummary{}
	}
	response.OK(c, list)
}

func (h *Handler) get(c *gin.Context, user *models.User, data json.RawMessage) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	room := h.requireRoom(c, user, req.RoomID, false)
	if room == nil {
		return
	}
	cells, err := h.store.ListCells(c.Request.Context(), room.ID)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	walls, err := h.store.ListWalls(c.Request.Context(), room.ID)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	if cells == nil {
		cells = []models.RoomCell{}
	}
	if walls == nil {
		walls = []models.RoomWall{}
	}
	response.OK(c, roomDetail{Room: *room, Cells: cells, Walls: walls})
}

func (h *Handler) createCell(c *gin.Context, user *models.User, data json.RawMessage) {
	var req createCellRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	room := h.requireRoom(c, user, req.RoomID, true)
	if room == nil {
		return
	}
	if !models.ValidCellType(req.Type) {
		response.BadRequest(c, "invalid cell type")
		return
	}
	if req.X < 0 || req.Y < 0 || req.X >= room.GridWidth || req.Y >= room.GridHeight {
		response.BadRequest(c, "cell position outside room grid")
		return
	}
	cell, err := h.store.CreateCell(c.Request.Context(), req.RoomID, req.X, req.Y, models.CellType(req.Type), req.Label)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	response.Created(c, cell)
}

func (h *Handler) updateCell(c *gin.Context, user *models.User, data json.RawMessage) {
	var req updateCellRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	if !models.ValidCellType(req.Type) {
		response.BadRequest(c, "invalid cell type")
		return
	}
	cell, err := h.store.UpdateCell(c.Request.Context(), req.RoomID, req.CellID, models.CellType(req.Type), req.Label)
	if err != nil {
		response.StoreError(c, err, "cell not found")
		return
	}
	response.OK(c, cell)
}

func (h *Handler) deleteCell(c *gin.Context, user *models.User, data json.RawMessage) {
	var req cellRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	if err := h.store.DeleteCell(c.Request.Context(), req.RoomID, req.CellID); err != nil {
		response.StoreError(c, err, "cell not found")
		return
	}
	response.OK(c, gin.H{"deleted": req.CellID})
}

func (h *Handler) createWall(c *gin.Context, user *models.User, data json.RawMessage) {
	var req createWallRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	room := h.requireRoom(c, user, req.RoomID, true)
	if room == nil {
		return
	}
	if req.Orientation != string(models.WallHorizontal) && req.Orientation != string(models.WallVertical) {
		response.BadRequest(c, "invalid wall orientation")
		return
	}
	if req.X < 0 || req.Y < 0 || req.X >= room.GridWidth || req.Y >= room.GridHeight {
		response.BadRequest(c, "wall position outside room grid")
		return
	}
	wall, err := h.store.CreateWall(c.Request.Context(), req.RoomID, req.X, req.Y, models.WallOrientation(req.Orientation))
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	response.Created(c, wall)
}

func (h *Handler) deleteWall(c *gin.Context, user *models.User, data json.RawMessage) {
	var req wallRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	if err := h.store.DeleteWall(c.Request.Context(), req.RoomID, req.WallID); err != nil {
		response.StoreError(c, err, "wall not found")
		return
	}
	response.OK(c, gin.H{"deleted": req.WallID})
}

func (h *Handler) deleteAllCells(c *gin.Context, user *models.User, data json.RawMessage) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	if err := h.store.DeleteAllCells(c.Request.Context(), req.RoomID); err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	response.OK(c, gin.H{"cleared": req.RoomID})
}

func (h *Handler) listRoomUsers(c *gin.Context, user *models.User, data json.RawMessage) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	list, err := h.store.ListRoomUsers(c.Request.Context(), req.RoomID)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	if list == nil {
		list = []models.RoomUser{}
	}
	response.OK(c, list)
}

func (h *Handler) addRoomUser(c *gin.Context, user *models.User, data json.RawMessage) {
	var req roomUserRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	if req.UserID == uuid.Nil {
		response.BadRequest(c, "user_id is required")
		return
	}
	if req.Role == "" {
		req.Role = string(models.RoomRoleMember)
	}
	if !models.ValidRoomRole(req.Role) {
		response.BadRequest(c, "invalid room role")
		return
	}
	if err := h.store.AddRoomUser(c.Request.Context(), req.RoomID, req.UserID, models.RoomRole(req.Role)); err != nil {
		response.StoreError(c, err, "user not found")
		return
	}
	response.OK(c, gin.H{"room_id": req.RoomID, "user_id": req.UserID, "role": req.Role})
}

func (h *Handler) removeRoomUser(c *gin.Context, user *models.User, data json.RawMessage) {
	var req roomUserRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	if err := h.store.RemoveRoomUser(c.Request.Context(), req.RoomID, req.UserID); err != nil {
		response.StoreError(c, err, "room access grant not found")
		return
	}
	response.OK(c, gin.H{"removed": req.UserID})
}

func (h *Handler) listAvailableUsers(c *gin.Context, user *models.User, data json.RawMessage) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	list, err := h.store.ListAvailableUsers(c.Request.Context(), req.RoomID)
	if err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	if list == nil {
		list = []models.UserPublic{}
	}
	response.OK(c, list)
}

func (h *Handler) floorPlanUploadURL(c *gin.Context, user *models.User, data json.RawMessage) {
	var req floorPlanUploadRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	if h.requireRoom(c, user, req.RoomID, true) == nil {
		return
	}
	if h.plans == nil {
		response.Internal(c, "floor plan storage is not configured")
		return
	}
	contentType := storage.ContentTypeForFilename(req.Filename)
	if _, ok := storage.AllowedFloorPlanTypes[contentType]; !ok {
		response.BadRequest(c, "unsupported floor plan file type")
		return
	}
	key := storage.FloorPlanKey(req.RoomID.String(), req.Filename)
	url, err := h.plans.GeneratePresignedUploadURL(c.Request.Context(), key, contentType, h.plans.PresignExpire())
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	if err := h.store.SetFloorPlanKey(c.Request.Context(), req.RoomID, key); err != nil {
		response.StoreError(c, err, "room not found")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "key": key, "content_type": contentType})
}

func (h *Handler) floorPlanDownloadURL(c *gin.Context, user *models.User, data json.RawMessage) {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		response.BadRequest(c, "invalid data: "+err.Error())
		return
	}
	room := h.requireRoom(c, user, req.RoomID, false)
	if room == nil {
		return
	}
	if h.plans == nil {
		response.Internal(c, "floor plan storage is not configured")
		return
	}
	if room.FloorPlanKey == nil {
		response.NotFound(c, "room has no floor plan")
		return
	}
	url, err := h.plans.GeneratePresignedDownloadURL(c.Request.Context(), *room.FloorPlanKey, h.plans.PresignExpire())
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	response.OK(c, gin.H{"download_url": url})
}
