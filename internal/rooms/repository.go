package rooms

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
)

// Repository handles room, layout and room-access persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a rooms repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roomColumns = `id, name, grid_width, grid_height, floor_plan_key, created_by, created_at, updated_at`

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(&r.ID, &r.Name, &r.GridWidth, &r.GridHeight, &r.FloorPlanKey, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &r, nil
}

// Create inserts a room and grants the creator the room admin role, in one
// transaction.
func (r *Repository) Create(ctx context.Context, name string, gridWidth, gridHeight int, createdBy uuid.UUID) (*models.Room, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO rooms (name, grid_width, grid_height, created_by)
		VALUES ($1, $2, $3, $4) RETURNING ` + roomColumns
	room, err := scanRoom(tx.QueryRow(ctx, q, name, gridWidth, gridHeight, createdBy))
	if err != nil {
		return nil, err
	}
	const grant = `INSERT INTO room_access (room_id, user_id, role) VALUES ($1, $2, 'admin')`
	if _, err := tx.Exec(ctx, grant, room.ID, createdBy); err != nil {
		return nil, database.WrapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, database.WrapError(err)
	}
	return room, nil
}

// Get returns a room by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	return scanRoom(r.pool.QueryRow(ctx, q, id))
}

// Update renames or resizes a room.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name string, gridWidth, gridHeight int) (*models.Room, error) {
	const q = `UPDATE rooms SET name = $1, grid_width = $2, grid_height = $3, updated_at = NOW()
		WHERE id = $4 RETURNING ` + roomColumns
	return scanRoom(r.pool.QueryRow(ctx, q, name, gridWidth, gridHeight, id))
}

// Delete removes a room; cells, walls, grants and reservations cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// SetFloorPlanKey records the S3 object key of the room's floor-plan image.
func (r *Repository) SetFloorPlanKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE rooms SET floor_plan_key = $1, updated_at = NOW() WHERE id = $2`, key, id)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

const summarySelect = `SELECT r.id, r.name, r.grid_width, r.grid_height, r.floor_plan_key, r.created_by, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM room_cells c WHERE c.room_id = r.id AND c.type = 'desk') AS total_desks,
	(SELECT COUNT(*) FROM reservations v WHERE v.room_id = r.id
		AND v.status NOT IN ('cancelled', 'rejected')
		AND v.date_start <= CURRENT_DATE AND v.date_end >= CURRENT_DATE) AS active_reservations
	FROM rooms r`

func (r *Repository) querySummaries(ctx context.Context, q string, args ...any) ([]models.RoomSummary, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()
	var list []models.RoomSummary
	for rows.Next() {
		var s models.RoomSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.GridWidth, &s.GridHeight, &s.FloorPlanKey, &s.CreatedBy,
			&s.CreatedAt, &s.UpdatedAt, &s.TotalDesks, &s.ActiveReservations); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, s)
	}
	return list, database.WrapError(rows.Err())
}

// ListAll returns every room with aggregates (super_admin view).
func (r *Repository) ListAll(ctx context.Context) ([]models.RoomSummary, error) {
	return r.querySummaries(ctx, summarySelect+` ORDER BY r.name`)
}

// ListForUser returns the rooms the user has an access grant for.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.RoomSummary, error) {
	const q = summarySelect + ` JOIN room_access a ON a.room_id = r.id AND a.user_id = $1 ORDER BY r.name`
	return r.querySummaries(ctx, q, userID)
}

// RoomRole returns the user's room-scoped role grant, if any.
func (r *Repository) RoomRole(ctx context.Context, roomID, userID uuid.UUID) (models.RoomRole, bool, error) {
	const q = `SELECT role FROM room_access WHERE room_id = $1 AND user_id = $2`
	var role models.RoomRole
	if err := r.pool.QueryRow(ctx, q, roomID, userID).Scan(&role); err != nil {
		err = database.WrapError(err)
		if errors.Is(err, database.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return role, true, nil
}

// ListRoomUsers returns the room's members joined with user records.
func (r *Repository) ListRoomUsers(ctx context.Context, roomID uuid.UUID) ([]models.RoomUser, error) {
	const q = `SELECT a.user_id, u.email, u.full_name, a.role
		FROM room_access a JOIN users u ON u.id = a.user_id
		WHERE a.room_id = $1 AND u.is_active
		ORDER BY u.full_name, u.email`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()
	var list []models.RoomUser
	for rows.Next() {
		var m models.RoomUser
		if err := rows.Scan(&m.UserID, &m.Email, &m.FullName, &m.Role); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, m)
	}
	return list, database.WrapError(rows.Err())
}

// AddRoomUser grants (or re-grants with a new role) room access to a user.
func (r *Repository) AddRoomUser(ctx context.Context, roomID, userID uuid.UUID, role models.RoomRole) error {
	const q = `INSERT INTO room_access (room_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.pool.Exec(ctx, q, roomID, userID, string(role))
	return database.WrapError(err)
}

// RemoveRoomUser revokes a user's room access.
func (r *Repository) RemoveRoomUser(ctx context.Context, roomID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM room_access WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ListAvailableUsers returns active users without a grant for the room.
func (r *Repository) ListAvailableUsers(ctx context.Context, roomID uuid.UUID) ([]models.UserPublic, error) {
	const q = `SELECT id, email, full_name, role, is_active, created_at FROM users u
		WHERE u.is_active
		AND NOT EXISTS (SELECT 1 FROM room_access a WHERE a.room_id = $1 AND a.user_id = u.id)
		ORDER BY full_name, email`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, u)
	}
	return list, database.WrapError(rows.Err())
}

// ListCells returns the room's layout cells.
func (r *Repository) ListCells(ctx context.Context, roomID uuid.UUID) ([]models.RoomCell, error) {
	const q = `SELECT id, room_id, x, y, type, label FROM room_cells WHERE room_id = $1 ORDER BY y, x`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()
	var list []models.RoomCell
	for rows.Next() {
		var cell models.RoomCell
		if err := rows.Scan(&cell.ID, &cell.RoomID, &cell.X, &cell.Y, &cell.Type, &cell.Label); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, cell)
	}
	return list, database.WrapError(rows.Err())
}

// CreateCell inserts a layout cell.
func (r *Repository) CreateCell(ctx context.Context, roomID uuid.UUID, x, y int, cellType models.CellType, label string) (*models.RoomCell, error) {
	const q = `INSERT INTO room_cells (room_id, x, y, type, label) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, room_id, x, y, type, label`
	var cell models.RoomCell
	err := r.pool.QueryRow(ctx, q, roomID, x, y, string(cellType), label).
		Scan(&cell.ID, &cell.RoomID, &cell.X, &cell.Y, &cell.Type, &cell.Label)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &cell, nil
}

// UpdateCell changes a cell's type or label. Scoped by room to keep the
// caller's authorization decision authoritative.
func (r *Repository) UpdateCell(ctx context.Context, roomID, cellID uuid.UUID, cellType models.CellType, label string) (*models.RoomCell, error) {
	const q = `UPDATE room_cells SET type = $1, label = $2 WHERE id = $3 AND room_id = $4
		RETURNING id, room_id, x, y, type, label`
	var cell models.RoomCell
	err := r.pool.QueryRow(ctx, q, string(cellType), label, cellID, roomID).
		Scan(&cell.ID, &cell.RoomID, &cell.X, &cell.Y, &cell.Type, &cell.Label)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &cell, nil
}

// DeleteCell removes one cell of the room.
func (r *Repository) DeleteCell(ctx context.Context, roomID, cellID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM room_cells WHERE id = $1 AND room_id = $2`, cellID, roomID)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteAllCells clears the room's layout.
func (r *Repository) DeleteAllCells(ctx context.Context, roomID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM room_cells WHERE room_id = $1`, roomID)
	return database.WrapError(err)
}

// GetCell returns one layout cell.
func (r *Repository) GetCell(ctx context.Context, cellID uuid.UUID) (*models.RoomCell, error) {
	const q = `SELECT id, room_id, x, y, type, label FROM room_cells WHERE id = $1`
	var cell models.RoomCell
	err := r.pool.QueryRow(ctx, q, cellID).Scan(&cell.ID, &cell.RoomID, &cell.X, &cell.Y, &cell.Type, &cell.Label)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &cell, nil
}

// ListWalls returns the room's wall segments.
func (r *Repository) ListWalls(ctx context.Context, roomID uuid.UUID) ([]models.RoomWall, error) {
	const q = `SELECT id, room_id, x, y, orientation FROM room_walls WHERE room_id = $1 ORDER BY y, x`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, database.WrapError(err)
	}
	defer rows.Close()
	var list []models.RoomWall
	for rows.Next() {
		var w models.RoomWall
		if err := rows.Scan(&w.ID, &w.RoomID, &w.X, &w.Y, &w.Orientation); err != nil {
			return nil, database.WrapError(err)
		}
		list = append(list, w)
	}
	return list, database.WrapError(rows.Err())
}

// CreateWall inserts a wall segment.
func (r *Repository) CreateWall(ctx context.Context, roomID uuid.UUID, x, y int, orientation models.WallOrientation) (*models.RoomWall, error) {
	const q = `INSERT INTO room_walls (room_id, x, y, orientation) VALUES ($1, $2, $3, $4)
		RETURNING id, room_id, x, y, orientation`
	var w models.RoomWall
	err := r.pool.QueryRow(ctx, q, roomID, x, y, string(orientation)).
		Scan(&w.ID, &w.RoomID, &w.X, &w.Y, &w.Orientation)
	if err != nil {
		return nil, database.WrapError(err)
	}
	return &w, nil
}

// DeleteWall removes one wall segment of the room.
func (r *Repository) DeleteWall(ctx context.Context, roomID, wallID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM room_walls WHERE id = $1 AND room_id = $2`, wallID, roomID)
	if err != nil {
		return database.WrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
