package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hosteldesk/hostel-api/internal/models"
)

// ErrRoomFull is returned when the capacity re-check fails at write time.
var ErrRoomFull = errors.New("room at capacity")

// AllocationRepository owns every mutation of the rooms/occupants pair.
// Each operation is a single transaction so the enrollment side and the
// room side of an allocation always commit or roll back together, and the
// capacity check is re-evaluated by the database at write time.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// AssignParams describes a room assignment. PreviousRoomID is set when the
// enrollment already holds a different room; the move-out and move-in then
// share the transaction, so an aborted move leaves state untouched.
type AssignParams struct {
	EnrollmentID   string
	StudentID      string
	RoomID         string
	PreviousRoomID *string
}

// Assign places the student into the room and marks the enrollment
// ROOM_ALLOCATED. Returns ErrRoomFull when the room has no space left.
func (r *AllocationRepository) Assign(ctx context.Context, params AssignParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if params.PreviousRoomID != nil && *params.PreviousRoomID != "" {
		if err := removeOccupantTx(ctx, tx, *params.PreviousRoomID, params.StudentID); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE rooms SET occupancy = occupancy + 1, updated_at = $2 WHERE id = $1 AND occupancy < capacity`,
		params.RoomID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment occupancy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment occupancy: %w", err)
	}
	if affected == 0 {
		return ErrRoomFull
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_occupants (room_id, student_id, allocated_at) VALUES ($1, $2, $3)`,
		params.RoomID, params.StudentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert occupant: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE enrollments SET allocated_room_id = $2, status = $3, updated_at = $4 WHERE id = $1`,
		params.EnrollmentID, params.RoomID, models.EnrollmentStatusRoomAllocated, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark enrollment allocated: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign: %w", err)
	}
	return nil
}

// Release removes the student from the room and resets the enrollment to
// APPROVED, never PENDING.
func (r *AllocationRepository) Release(ctx context.Context, enrollmentID, studentID, roomID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := removeOccupantTx(ctx, tx, roomID, studentID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE enrollments SET allocated_room_id = NULL, status = $2, updated_at = $3 WHERE id = $1`,
		enrollmentID, models.EnrollmentStatusApproved, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark enrollment released: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit release: %w", err)
	}
	return nil
}

// removeOccupantTx drops the membership row if present (a missing row is not
// an error) and recomputes the occupancy counter from the occupant table.
func removeOccupantTx(ctx context.Context, tx *sqlx.Tx, roomID, studentID string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM room_occupants WHERE room_id = $1 AND student_id = $2`,
		roomID, studentID); err != nil {
		return fmt.Errorf("remove occupant: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE rooms SET occupancy = (SELECT COUNT(*) FROM room_occupants WHERE room_id = $1), updated_at = $2 WHERE id = $1`,
		roomID, time.Now().UTC()); err != nil {
		return fmt.Errorf("recompute occupancy: %w", err)
	}
	return nil
}
