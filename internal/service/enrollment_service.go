package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hosteldesk/hostel-api/internal/dto"
	"github.com/hosteldesk/hostel-api/internal/models"
	appErrors "github.com/hosteldesk/hostel-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollmentService handles application submission and admin review.
// Room allocation itself is AllocationService's business.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, audit: audit, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Get returns a single enrollment with student and room context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Create submits a new accommodation application in PENDING state. School
// students always get ACPreference true regardless of what was submitted.
func (s *EnrollmentService) Create(ctx context.Context, req dto.CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if req.StudentType != models.StudentTypeSchool && req.StudentType != models.StudentTypeCollege {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_type must be SCHOOL or COLLEGE")
	}
	if req.Gender != models.GenderMale && req.Gender != models.GenderFemale {
		return nil, appErrors.Clone(appErrors.ErrValidation, "gender must be MALE or FEMALE")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollment := &models.Enrollment{
		StudentID:           req.StudentID,
		StudentType:         req.StudentType,
		Gender:              req.Gender,
		State:               req.State,
		HostelName:          req.HostelName,
		RoomType:            req.RoomType,
		MealPlan:            req.MealPlan,
		SpecialRequirements: req.SpecialRequirements,
		PreferredFloor:      1,
		PreferredRoommates:  []string{},
		Status:              models.EnrollmentStatusPending,
	}
	if prefs := req.RoomPreferences; prefs != nil {
		if prefs.PreferredFloor > 0 {
			enrollment.PreferredFloor = prefs.PreferredFloor
		}
		if len(prefs.PreferredRoommates) > 0 {
			enrollment.PreferredRoommates = prefs.PreferredRoommates
		}
		enrollment.ACPreference = prefs.ACPreference
		enrollment.SameStatePreference = prefs.SameStatePreference
	}
	if enrollment.StudentType == models.StudentTypeSchool {
		enrollment.ACPreference = true
	}

	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Review applies the admin decision on a pending application. Only
// PENDING applications may be reviewed, and only to APPROVED or REJECTED;
// ROOM_ALLOCATED is entered exclusively through allocation.
func (s *EnrollmentService) Review(ctx context.Context, id string, req dto.ReviewEnrollmentRequest, actorID string) (*models.Enrollment, error) {
	if req.Status != models.EnrollmentStatusApproved && req.Status != models.EnrollmentStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already reviewed")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	previous := enrollment.Status
	enrollment.Status = req.Status
	s.emitReviewAudit(ctx, actorID, enrollment.ID, previous, req.Status)
	return enrollment, nil
}

func (s *EnrollmentService) emitReviewAudit(ctx context.Context, actorID, enrollmentID string, from, to models.EnrollmentStatus) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]models.EnrollmentStatus{"status": from})
	newValues, _ := json.Marshal(map[string]models.EnrollmentStatus{"status": to})
	log := &models.AuditLog{
		Action:     models.AuditActionEnrollmentReview,
		Resource:   "enrollment",
		ResourceID: &enrollmentID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "enrollment-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
