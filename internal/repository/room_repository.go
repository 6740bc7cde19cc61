package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hosteldesk/hostel-api/internal/models"
)

// RoomRepository handles persistence of rooms and their occupant lists.
// Occupancy counters are mutated exclusively through AllocationRepository.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = `id, room_number, block, type, has_ac, floor, capacity, occupancy, created_at, updated_at`

// FindByID returns a room by its ID.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE id = $1`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	room.Refresh()
	return &room, nil
}

// FindByNumber returns a room by its unique room number.
func (r *RoomRepository) FindByNumber(ctx context.Context, roomNumber string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE room_number = $1`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, roomNumber); err != nil {
		return nil, err
	}
	room.Refresh()
	return &room, nil
}

// List returns rooms matching the filter ordered by room number.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	return r.list(ctx, filter, "room_number ASC")
}

// ListCandidates returns rooms matching the filter ordered by occupancy
// descending, so partially filled rooms are packed before empty ones open.
// Room number breaks ties to keep the scan deterministic.
func (r *RoomRepository) ListCandidates(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	return r.list(ctx, filter, "occupancy DESC, room_number ASC")
}

func (r *RoomRepository) list(ctx context.Context, filter models.RoomFilter, orderBy string) ([]models.Room, error) {
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Block != "" {
		conditions = append(conditions, fmt.Sprintf("block = $%d", len(args)+1))
		args = append(args, filter.Block)
	}
	if filter.HasAC != nil {
		conditions = append(conditions, fmt.Sprintf("has_ac = $%d", len(args)+1))
		args = append(args, *filter.HasAC)
	}
	if filter.Floor != nil {
		conditions = append(conditions, fmt.Sprintf("floor = $%d", len(args)+1))
		args = append(args, *filter.Floor)
	}
	if filter.NotFull {
		conditions = append(conditions, "occupancy < capacity")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM rooms%s ORDER BY %s`, roomColumns, clause, orderBy)

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	for i := range rooms {
		rooms[i].Refresh()
	}
	return rooms, nil
}

// Create persists a new room with zero occupancy.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	room.Occupancy = 0
	const query = `INSERT INTO rooms (id, room_number, block, type, has_ac, floor, capacity, occupancy, created_at, updated_at)
        VALUES (:id, :room_number, :block, :type, :has_ac, :floor, :capacity, :occupancy, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	room.Refresh()
	return nil
}

// Update amends the mutable room attributes.
func (r *RoomRepository) Update(ctx context.Context, id string, hasAC *bool, floor *int) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}

	if hasAC != nil {
		args = append(args, *hasAC)
		sets = append(sets, fmt.Sprintf("has_ac = $%d", len(args)))
	}
	if floor != nil {
		args = append(args, *floor)
		sets = append(sets, fmt.Sprintf("floor = $%d", len(args)))
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE rooms SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

// ListOccupants returns the room's occupants in allocation order.
func (r *RoomRepository) ListOccupants(ctx context.Context, roomID string) ([]models.RoomOccupant, error) {
	const query = `SELECT ro.student_id, s.student_no, s.full_name, ro.allocated_at
        FROM room_occupants ro
        JOIN students s ON s.id = ro.student_id
        WHERE ro.room_id = $1
        ORDER BY ro.allocated_at ASC`
	var occupants []models.RoomOccupant
	if err := r.db.SelectContext(ctx, &occupants, query, roomID); err != nil {
		return nil, fmt.Errorf("list room occupants: %w", err)
	}
	return occupants, nil
}
