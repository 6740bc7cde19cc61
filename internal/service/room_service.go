package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hosteldesk/hostel-api/internal/dto"
	"github.com/hosteldesk/hostel-api/internal/models"
	appErrors "github.com/hosteldesk/hostel-api/pkg/errors"
)

type roomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByNumber(ctx context.Context, roomNumber string) (*models.Room, error)
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, id string, hasAC *bool, floor *int) error
	ListOccupants(ctx context.Context, roomID string) ([]models.RoomOccupant, error)
}

// RoomService manages room inventory. It never touches occupancy; that is
// the allocation engine's job.
type RoomService struct {
	repo            roomRepository
	cache           *CacheService
	audit           auditLogger
	validator       *validator.Validate
	logger          *zap.Logger
	defaultCapacity int
}

// NewRoomService constructs RoomService.
func NewRoomService(repo roomRepository, cache *CacheService, audit auditLogger, validate *validator.Validate, logger *zap.Logger, defaultCapacity int) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCapacity <= 0 {
		defaultCapacity = 6
	}
	return &RoomService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, defaultCapacity: defaultCapacity}
}

// List returns rooms matching the filter, served from cache when possible.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	key := roomListCacheKey(filter)
	var cached []models.Room
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	rooms, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	if err := s.cache.Set(ctx, key, rooms, 0); err != nil {
		s.logger.Warn("failed to cache room listing", zap.Error(err))
	}
	return rooms, nil
}

// Get returns a room with its ordered occupant list.
func (s *RoomService) Get(ctx context.Context, id string) (*models.RoomDetail, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	occupants, err := s.repo.ListOccupants(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupants")
	}
	if occupants == nil {
		occupants = []models.RoomOccupant{}
	}
	return &models.RoomDetail{Room: *room, Occupants: occupants}, nil
}

// Create registers a new room. When HasAC is omitted it defaults by room
// type: SCHOOL rooms are air conditioned, COLLEGE rooms are not. A SCHOOL
// room explicitly declared without AC is rejected rather than silently
// corrected.
func (s *RoomService) Create(ctx context.Context, req dto.CreateRoomRequest, actorID string) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	if req.Block != models.BlockBoys && req.Block != models.BlockGirls {
		return nil, appErrors.Clone(appErrors.ErrValidation, "block must be BOYS or GIRLS")
	}
	if req.Type != models.StudentTypeSchool && req.Type != models.StudentTypeCollege {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be SCHOOL or COLLEGE")
	}
	if req.Type == models.StudentTypeSchool && req.HasAC != nil && !*req.HasAC {
		return nil, appErrors.Clone(appErrors.ErrValidation, "AC is compulsory for school rooms")
	}
	if req.Capacity < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "capacity must be positive")
	}

	if _, err := s.repo.FindByNumber(ctx, req.RoomNumber); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room %s already exists", req.RoomNumber))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room number")
	}

	room := &models.Room{
		RoomNumber: req.RoomNumber,
		Block:      req.Block,
		Type:       req.Type,
		HasAC:      req.Type == models.StudentTypeSchool,
		Floor:      req.Floor,
		Capacity:   req.Capacity,
	}
	if req.HasAC != nil {
		room.HasAC = *req.HasAC
	}
	if room.Floor <= 0 {
		room.Floor = 1
	}
	if room.Capacity <= 0 {
		room.Capacity = s.defaultCapacity
	}

	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}

	if err := s.cache.Invalidate(ctx, roomCachePattern); err != nil {
		s.logger.Warn("failed to invalidate room cache", zap.Error(err))
	}
	s.emitRoomAudit(ctx, actorID, models.AuditActionRoomCreate, room.ID, nil, room)
	return room, nil
}

// Update amends AC and floor on an existing room. A school room cannot have
// its AC switched off.
func (s *RoomService) Update(ctx context.Context, id string, req dto.UpdateRoomRequest, actorID string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room.Type == models.StudentTypeSchool && req.HasAC != nil && !*req.HasAC {
		return nil, appErrors.Clone(appErrors.ErrValidation, "AC is compulsory for school rooms")
	}
	if req.Floor != nil && *req.Floor <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "floor must be positive")
	}
	if req.HasAC == nil && req.Floor == nil {
		return room, nil
	}

	previous := *room
	if err := s.repo.Update(ctx, id, req.HasAC, req.Floor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	if req.HasAC != nil {
		room.HasAC = *req.HasAC
	}
	if req.Floor != nil {
		room.Floor = *req.Floor
	}

	if err := s.cache.Invalidate(ctx, roomCachePattern); err != nil {
		s.logger.Warn("failed to invalidate room cache", zap.Error(err))
	}
	s.emitRoomAudit(ctx, actorID, models.AuditActionRoomUpdate, room.ID, &previous, room)
	return room, nil
}

func (s *RoomService) emitRoomAudit(ctx context.Context, actorID, action, roomID string, before, after *models.Room) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "room",
		ResourceID: &roomID,
		IPAddress:  "system",
		UserAgent:  "room-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if before != nil {
		log.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		log.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func roomListCacheKey(filter models.RoomFilter) string {
	parts := []string{"rooms", "list"}
	if filter.Type != "" {
		parts = append(parts, "type="+string(filter.Type))
	}
	if filter.Block != "" {
		parts = append(parts, "block="+string(filter.Block))
	}
	if filter.HasAC != nil {
		parts = append(parts, fmt.Sprintf("ac=%t", *filter.HasAC))
	}
	if filter.Floor != nil {
		parts = append(parts, fmt.Sprintf("floor=%d", *filter.Floor))
	}
	if filter.NotFull {
		parts = append(parts, "notfull")
	}
	return strings.Join(parts, ":")
}
