package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hosteldesk/hostel-api/internal/models"
)

func newRoomRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func roomRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "room_number", "block", "type", "has_ac", "floor", "capacity", "occupancy", "created_at", "updated_at"})
}

func TestRoomRepositoryFindByIDDerivesStatus(t *testing.T) {
	db, mock, cleanup := newRoomRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, room_number, block, type, has_ac, floor, capacity, occupancy, created_at, updated_at FROM rooms WHERE id = $1")).
		WithArgs("room-1").
		WillReturnRows(roomRows().AddRow("room-1", "B-101", models.BlockBoys, models.StudentTypeCollege, false, 1, 4, 2, now, now))

	room, err := repo.FindByID(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusPartiallyOccupied, room.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListCandidatesFilters(t *testing.T) {
	db, mock, cleanup := newRoomRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	hasAC := true
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, room_number, block, type, has_ac, floor, capacity, occupancy, created_at, updated_at FROM rooms WHERE type = $1 AND block = $2 AND has_ac = $3 AND occupancy < capacity ORDER BY occupancy DESC, room_number ASC")).
		WithArgs(models.StudentTypeSchool, models.BlockGirls, true).
		WillReturnRows(roomRows().
			AddRow("room-2", "G-202", models.BlockGirls, models.StudentTypeSchool, true, 2, 4, 3, now, now).
			AddRow("room-1", "G-201", models.BlockGirls, models.StudentTypeSchool, true, 2, 4, 0, now, now))

	rooms, err := repo.ListCandidates(context.Background(), models.RoomFilter{
		Type:    models.StudentTypeSchool,
		Block:   models.BlockGirls,
		HasAC:   &hasAC,
		NotFull: true,
	})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "room-2", rooms[0].ID)
	assert.Equal(t, models.RoomStatusAvailable, rooms[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRoomRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec("INSERT INTO rooms").
		WillReturnResult(sqlmock.NewResult(0, 1))

	room := &models.Room{RoomNumber: "B-101", Block: models.BlockBoys, Type: models.StudentTypeCollege, Floor: 1, Capacity: 4, Occupancy: 3}
	err := repo.Create(context.Background(), room)
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, 0, room.Occupancy)
	assert.Equal(t, models.RoomStatusAvailable, room.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListOccupants(t *testing.T) {
	db, mock, cleanup := newRoomRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT ro.student_id, s.student_no, s.full_name, ro.allocated_at").
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "student_no", "full_name", "allocated_at"}).
			AddRow("stu-1", "STU-1", "First Student", now))

	occupants, err := repo.ListOccupants(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, occupants, 1)
	assert.Equal(t, "STU-1", occupants[0].StudentNo)
	require.NoError(t, mock.ExpectationsWereMet())
}
