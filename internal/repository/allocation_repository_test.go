package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/hosteldesk/hostel-api/internal/models"
)

func newAllocationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAllocationRepositoryAssign(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupancy = occupancy + 1, updated_at = $2 WHERE id = $1 AND occupancy < capacity")).
		WithArgs("room-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO room_occupants (room_id, student_id, allocated_at) VALUES ($1, $2, $3)")).
		WithArgs("room-1", "stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET allocated_room_id = $2, status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("enr-1", "room-1", models.EnrollmentStatusRoomAllocated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Assign(context.Background(), AssignParams{
		EnrollmentID: "enr-1",
		StudentID:    "stu-1",
		RoomID:       "room-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryAssignFullRoom(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupancy = occupancy + 1, updated_at = $2 WHERE id = $1 AND occupancy < capacity")).
		WithArgs("room-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Assign(context.Background(), AssignParams{
		EnrollmentID: "enr-1",
		StudentID:    "stu-1",
		RoomID:       "room-1",
	})
	require.ErrorIs(t, err, ErrRoomFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryAssignMove(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	previous := "room-old"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM room_occupants WHERE room_id = $1 AND student_id = $2")).
		WithArgs("room-old", "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupancy = (SELECT COUNT(*) FROM room_occupants WHERE room_id = $1), updated_at = $2 WHERE id = $1")).
		WithArgs("room-old", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupancy = occupancy + 1, updated_at = $2 WHERE id = $1 AND occupancy < capacity")).
		WithArgs("room-new", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO room_occupants (room_id, student_id, allocated_at) VALUES ($1, $2, $3)")).
		WithArgs("room-new", "stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET allocated_room_id = $2, status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("enr-1", "room-new", models.EnrollmentStatusRoomAllocated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Assign(context.Background(), AssignParams{
		EnrollmentID:   "enr-1",
		StudentID:      "stu-1",
		RoomID:         "room-new",
		PreviousRoomID: &previous,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryRelease(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM room_occupants WHERE room_id = $1 AND student_id = $2")).
		WithArgs("room-1", "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupancy = (SELECT COUNT(*) FROM room_occupants WHERE room_id = $1), updated_at = $2 WHERE id = $1")).
		WithArgs("room-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET allocated_room_id = NULL, status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Release(context.Background(), "enr-1", "stu-1", "room-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
