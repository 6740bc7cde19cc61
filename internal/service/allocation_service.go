package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hosteldesk/hostel-api/internal/models"
	"github.com/hosteldesk/hostel-api/internal/repository"
	appErrors "github.com/hosteldesk/hostel-api/pkg/errors"
)

// roomCachePattern is invalidated on every occupancy mutation.
const roomCachePattern = "rooms:*"

type allocationEnrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListApprovedUnallocated(ctx context.Context) ([]models.Enrollment, error)
	ListActiveByRoom(ctx context.Context, roomID string) ([]models.Enrollment, error)
}

type allocationRoomStore interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ListCandidates(ctx context.Context, filter models.RoomFilter) ([]models.Room, error)
}

type allocationStore interface {
	Assign(ctx context.Context, params repository.AssignParams) error
	Release(ctx context.Context, enrollmentID, studentID, roomID string) error
}

type studentResolver interface {
	ResolveStudentNos(ctx context.Context, studentNos []string) ([]string, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AllocationService implements the room allocation engine: manual
// assignment, the greedy auto-allocation pass, and deallocation.
type AllocationService struct {
	enrollments allocationEnrollmentStore
	rooms       allocationRoomStore
	allocations allocationStore
	students    studentResolver
	audit       auditLogger
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewAllocationService constructs the service.
func NewAllocationService(
	enrollments allocationEnrollmentStore,
	rooms allocationRoomStore,
	allocations allocationStore,
	students studentResolver,
	audit auditLogger,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		enrollments: enrollments,
		rooms:       rooms,
		allocations: allocations,
		students:    students,
		audit:       audit,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// Allocate assigns the enrollment to the admin-chosen room. Override
// bypasses the type, block, AC and occupant rules; the capacity rule is a
// physical constraint and always applies. A student already holding a
// different room is moved; move-out and move-in commit as one transaction.
func (s *AllocationService) Allocate(ctx context.Context, enrollmentID, roomID string, override bool, actorID string) (*models.AllocationResult, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusApproved && enrollment.Status != models.EnrollmentStatusRoomAllocated {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment has not been approved")
	}

	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	if enrollment.Allocated() && *enrollment.AllocatedRoomID == room.ID {
		s.metrics.RecordAllocationFailure()
		return nil, appErrors.ErrAlreadyAllocated
	}

	occupants, err := s.enrollments.ListActiveByRoom(ctx, room.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupants")
	}

	check := CheckCompatibility(enrollment, room, occupants)
	if check.CapacityExceeded {
		s.metrics.RecordAllocationFailure()
		return nil, appErrors.ErrCapacityExceeded
	}
	var warnings []string
	if len(check.Reasons) > 0 {
		if !override {
			s.metrics.RecordAllocationFailure()
			return nil, appErrors.WithReasons(appErrors.ErrIncompatibleAssignment, check.Reasons)
		}
		warnings = check.Reasons
		s.logger.Warn("compatibility rules overridden",
			zap.String("enrollment_id", enrollment.ID),
			zap.String("room_id", room.ID),
			zap.Strings("reasons", check.Reasons))
	}

	params := repository.AssignParams{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		RoomID:       room.ID,
	}
	if enrollment.Allocated() {
		params.PreviousRoomID = enrollment.AllocatedRoomID
	}
	if err := s.allocations.Assign(ctx, params); err != nil {
		if errors.Is(err, repository.ErrRoomFull) {
			s.metrics.RecordAllocationFailure()
			return nil, appErrors.ErrCapacityExceeded
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate room")
	}

	enrollment.AllocatedRoomID = &room.ID
	enrollment.Status = models.EnrollmentStatusRoomAllocated
	room.Occupancy++
	room.Refresh()

	s.metrics.RecordAllocation("manual")
	s.invalidateRooms(ctx)
	s.emitAudit(ctx, actorID, models.AuditActionRoomAllocate, enrollment.ID, map[string]string{
		"room_id":     room.ID,
		"room_number": room.RoomNumber,
	})

	return &models.AllocationResult{Enrollment: enrollment, Room: room, Warnings: warnings}, nil
}

// AutoAllocate runs the batch pass over every approved, unallocated
// enrollment in creation order. The pass is greedy and sequential: earlier
// enrollments may take a room that would have suited a later one better.
// A per-enrollment failure becomes a report entry, never an abort.
func (s *AllocationService) AutoAllocate(ctx context.Context, actorID string) (*models.AutoAllocationReport, error) {
	pending, err := s.enrollments.ListApprovedUnallocated(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending enrollments")
	}

	report := &models.AutoAllocationReport{
		Success: []models.AllocationOutcome{},
		Failed:  []models.AllocationFailure{},
	}

	for i := range pending {
		enrollment := pending[i]
		room, err := s.placeOne(ctx, &enrollment)
		if err != nil {
			s.metrics.RecordAllocationFailure()
			report.Failed = append(report.Failed, models.AllocationFailure{
				EnrollmentID: enrollment.ID,
				Reason:       failureReason(err),
			})
			s.logger.Warn("auto-allocation failed for enrollment",
				zap.String("enrollment_id", enrollment.ID), zap.Error(err))
			continue
		}
		s.metrics.RecordAllocation("auto")
		report.Success = append(report.Success, models.AllocationOutcome{
			EnrollmentID: enrollment.ID,
			RoomID:       room.ID,
			RoomNumber:   room.RoomNumber,
		})
	}

	if len(report.Success) > 0 {
		s.invalidateRooms(ctx)
	}
	s.emitAudit(ctx, actorID, models.AuditActionAutoAllocate, "", map[string]int{
		"allocated": len(report.Success),
		"failed":    len(report.Failed),
	})

	return report, nil
}

// placeOne runs the candidate search with progressive constraint relaxation
// and commits the assignment for a single enrollment.
func (s *AllocationService) placeOne(ctx context.Context, enrollment *models.Enrollment) (*models.Room, error) {
	filter := models.RoomFilter{
		Type:    enrollment.StudentType,
		Block:   blockForGender(enrollment.Gender),
		NotFull: true,
	}

	// AC is compulsory for school students and never relaxed; college
	// students start from their stated preference.
	wantAC := enrollment.ACPreference
	if enrollment.StudentType == models.StudentTypeSchool {
		wantAC = true
	}
	filter.HasAC = &wantAC

	if enrollment.PreferredFloor > 0 {
		floor := enrollment.PreferredFloor
		filter.Floor = &floor
	}

	candidates, err := s.rooms.ListCandidates(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search rooms")
	}

	// Relax the floor preference first.
	if len(candidates) == 0 && filter.Floor != nil {
		filter.Floor = nil
		candidates, err = s.rooms.ListCandidates(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search rooms")
		}
	}

	// Then the AC preference, for college students only.
	if len(candidates) == 0 && enrollment.StudentType == models.StudentTypeCollege {
		filter.HasAC = nil
		candidates, err = s.rooms.ListCandidates(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search rooms")
		}
	}

	// Drop rooms with incompatible occupants outright; this filter is not
	// relaxable. Occupant lists are kept for roommate matching below.
	occupantsByRoom := make(map[string][]models.Enrollment, len(candidates))
	compatible := candidates[:0]
	for i := range candidates {
		room := candidates[i]
		if room.Occupancy > 0 {
			occupants, err := s.enrollments.ListActiveByRoom(ctx, room.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupants")
			}
			if !occupantsCompatible(enrollment, occupants) {
				continue
			}
			occupantsByRoom[room.ID] = occupants
		}
		compatible = append(compatible, room)
	}

	if len(compatible) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("no suitable rooms found for %s %s", enrollment.StudentType, enrollment.Gender))
	}

	// Candidates arrive sorted by occupancy descending, so the first entry
	// already packs rooms before opening new ones. A room housing a
	// preferred roommate wins over that default.
	selected := &compatible[0]
	if len(enrollment.PreferredRoommates) > 0 {
		preferredIDs, err := s.students.ResolveStudentNos(ctx, enrollment.PreferredRoommates)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve preferred roommates")
		}
		preferred := make(map[string]struct{}, len(preferredIDs))
		for _, id := range preferredIDs {
			preferred[id] = struct{}{}
		}
		for i := range compatible {
			if roomHasPreferred(occupantsByRoom[compatible[i].ID], preferred) {
				selected = &compatible[i]
				break
			}
		}
	}

	if err := s.allocations.Assign(ctx, repository.AssignParams{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		RoomID:       selected.ID,
	}); err != nil {
		if errors.Is(err, repository.ErrRoomFull) {
			return nil, appErrors.ErrCapacityExceeded
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate room")
	}

	enrollment.AllocatedRoomID = &selected.ID
	enrollment.Status = models.EnrollmentStatusRoomAllocated
	selected.Occupancy++
	selected.Refresh()
	return selected, nil
}

// Deallocate reverses an assignment, freeing the room slot and returning
// the enrollment to APPROVED.
func (s *AllocationService) Deallocate(ctx context.Context, enrollmentID, actorID string) error {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Allocated() {
		return appErrors.ErrNotAllocated
	}

	if err := s.allocations.Release(ctx, enrollment.ID, enrollment.StudentID, *enrollment.AllocatedRoomID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deallocate room")
	}

	s.metrics.RecordDeallocation()
	s.invalidateRooms(ctx)
	s.emitAudit(ctx, actorID, models.AuditActionRoomDeallocate, enrollment.ID, map[string]string{
		"room_id": *enrollment.AllocatedRoomID,
	})
	return nil
}

func (s *AllocationService) invalidateRooms(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, roomCachePattern); err != nil {
		s.logger.Warn("room cache invalidation failed", zap.Error(err))
	}
}

func (s *AllocationService) emitAudit(ctx context.Context, actorID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:    action,
		Resource:  "allocation",
		IPAddress: "system",
		UserAgent: "allocation-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			log.NewValues = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func blockForGender(g models.Gender) models.RoomBlock {
	if g == models.GenderFemale {
		return models.BlockGirls
	}
	return models.BlockBoys
}

func roomHasPreferred(occupants []models.Enrollment, preferred map[string]struct{}) bool {
	for _, occupant := range occupants {
		if _, ok := preferred[occupant.StudentID]; ok {
			return true
		}
	}
	return false
}

// failureReason turns an error into the operator-facing string recorded in
// the batch report.
func failureReason(err error) string {
	appErr := appErrors.FromError(err)
	if appErr == nil {
		return "unknown error"
	}
	return appErr.Message
}
