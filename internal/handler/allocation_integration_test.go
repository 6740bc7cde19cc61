package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/hosteldesk/hostel-api/internal/middleware"
	"github.com/hosteldesk/hostel-api/internal/models"
	"github.com/hosteldesk/hostel-api/internal/repository"
	"github.com/hosteldesk/hostel-api/internal/service"
)

type allocationWorld struct {
	enrollments map[string]models.Enrollment
	rooms       map[string]*models.Room
	occupants   map[string][]models.Enrollment
}

func (w *allocationWorld) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := w.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (w *allocationWorld) ListApprovedUnallocated(ctx context.Context) ([]models.Enrollment, error) {
	var list []models.Enrollment
	for _, e := range w.enrollments {
		if e.Status == models.EnrollmentStatusApproved && !e.Allocated() {
			list = append(list, e)
		}
	}
	return list, nil
}

func (w *allocationWorld) ListActiveByRoom(ctx context.Context, roomID string) ([]models.Enrollment, error) {
	return w.occupants[roomID], nil
}

type allocationWorldRooms struct {
	world *allocationWorld
}

func (s *allocationWorldRooms) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if r, ok := s.world.rooms[id]; ok {
		copied := *r
		copied.Refresh()
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *allocationWorldRooms) ListCandidates(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	var list []models.Room
	for _, r := range s.world.rooms {
		if filter.NotFull && r.Occupancy >= r.Capacity {
			continue
		}
		copied := *r
		copied.Refresh()
		list = append(list, copied)
	}
	return list, nil
}

type allocationWorldStore struct {
	world *allocationWorld
}

func (s *allocationWorldStore) Assign(ctx context.Context, params repository.AssignParams) error {
	room := s.world.rooms[params.RoomID]
	if room.Occupancy >= room.Capacity {
		return repository.ErrRoomFull
	}
	room.Occupancy++
	return nil
}

func (s *allocationWorldStore) Release(ctx context.Context, enrollmentID, studentID, roomID string) error {
	if room, ok := s.world.rooms[roomID]; ok && room.Occupancy > 0 {
		room.Occupancy--
	}
	return nil
}

type noopResolver struct{}

func (noopResolver) ResolveStudentNos(ctx context.Context, studentNos []string) ([]string, error) {
	return nil, nil
}

func buildAllocationRouter(world *allocationWorld) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "test-user",
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	svc := service.NewAllocationService(world, &allocationWorldRooms{world: world},
		&allocationWorldStore{world: world}, noopResolver{}, nil, nil, nil, zap.NewNop())
	allocHandler := NewAllocationHandler(svc)

	staff := internalmiddleware.RBAC(models.RoleAdmin, models.RoleWarden)
	router.POST("/rooms/allocate/:enrollmentId", staff, allocHandler.Allocate)
	router.POST("/rooms/auto-allocate", staff, allocHandler.AutoAllocate)
	router.DELETE("/rooms/deallocate/:enrollmentId", staff, allocHandler.Deallocate)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func defaultAllocationWorld() *allocationWorld {
	return &allocationWorld{
		enrollments: map[string]models.Enrollment{
			"e1": {
				ID: "e1", StudentID: "s1",
				StudentType: models.StudentTypeCollege, Gender: models.GenderMale,
				Status: models.EnrollmentStatusApproved,
			},
		},
		rooms: map[string]*models.Room{
			"r1": {
				ID: "r1", RoomNumber: "B-101", Block: models.BlockBoys,
				Type: models.StudentTypeCollege, Floor: 1, Capacity: 4,
			},
		},
		occupants: map[string][]models.Enrollment{},
	}
}

func TestAllocationRoutesIntegration(t *testing.T) {
	t.Run("allocate success", func(t *testing.T) {
		router := buildAllocationRouter(defaultAllocationWorld())
		req, _ := http.NewRequest(http.MethodPost, "/rooms/allocate/e1", bytes.NewBufferString(`{"room_id":"r1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleWarden))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"ROOM_ALLOCATED"`)
	})

	t.Run("allocate unauthorized without claims", func(t *testing.T) {
		router := buildAllocationRouter(defaultAllocationWorld())
		req, _ := http.NewRequest(http.MethodPost, "/rooms/allocate/e1", bytes.NewBufferString(`{"room_id":"r1"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("allocate forbidden for students", func(t *testing.T) {
		router := buildAllocationRouter(defaultAllocationWorld())
		req, _ := http.NewRequest(http.MethodPost, "/rooms/allocate/e1", bytes.NewBufferString(`{"room_id":"r1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("allocate incompatible returns 422 with reasons", func(t *testing.T) {
		world := defaultAllocationWorld()
		e := world.enrollments["e1"]
		e.Gender = models.GenderFemale
		world.enrollments["e1"] = e
		router := buildAllocationRouter(world)

		req, _ := http.NewRequest(http.MethodPost, "/rooms/allocate/e1", bytes.NewBufferString(`{"room_id":"r1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		require.Contains(t, resp.Body.String(), `"reasons"`)
	})

	t.Run("allocate full room returns 409", func(t *testing.T) {
		world := defaultAllocationWorld()
		world.rooms["r1"].Occupancy = 4
		router := buildAllocationRouter(world)

		req, _ := http.NewRequest(http.MethodPost, "/rooms/allocate/e1", bytes.NewBufferString(`{"room_id":"r1","override":true}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("auto-allocate reports outcome", func(t *testing.T) {
		router := buildAllocationRouter(defaultAllocationWorld())
		req, _ := http.NewRequest(http.MethodPost, "/rooms/auto-allocate", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"success"`)
		require.Contains(t, resp.Body.String(), `"failed"`)
	})

	t.Run("deallocate without allocation returns 409", func(t *testing.T) {
		router := buildAllocationRouter(defaultAllocationWorld())
		req, _ := http.NewRequest(http.MethodDelete, "/rooms/deallocate/e1", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("deallocate success", func(t *testing.T) {
		world := defaultAllocationWorld()
		roomID := "r1"
		e := world.enrollments["e1"]
		e.Status = models.EnrollmentStatusRoomAllocated
		e.AllocatedRoomID = &roomID
		world.enrollments["e1"] = e
		world.rooms["r1"].Occupancy = 1
		router := buildAllocationRouter(world)

		req, _ := http.NewRequest(http.MethodDelete, "/rooms/deallocate/e1", nil)
		req.Header.Set("X-Test-Role", string(models.RoleWarden))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNoContent, resp.Code)
	})
}
