package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hosteldesk/hostel-api/internal/dto"
	"github.com/hosteldesk/hostel-api/internal/models"
	appErrors "github.com/hosteldesk/hostel-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	created     *models.Enrollment
	status      map[string]models.EnrollmentStatus
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var list []models.EnrollmentDetail
	for _, e := range m.enrollments {
		list = append(list, models.EnrollmentDetail{Enrollment: e})
	}
	return list, len(list), nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enroll"
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if m.status == nil {
		m.status = make(map[string]models.EnrollmentStatus)
	}
	m.status[id] = status
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
		m.enrollments[id] = e
	}
	return nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func validEnrollmentRequest() dto.CreateEnrollmentRequest {
	return dto.CreateEnrollmentRequest{
		StudentID:   "s1",
		StudentType: models.StudentTypeCollege,
		Gender:      models.GenderMale,
		State:       "Kerala",
		HostelName:  "North Wing",
		RoomType:    "shared",
		MealPlan:    "vegetarian",
	}
}

func newEnrollmentFixture() (*mockEnrollmentRepo, *EnrollmentService) {
	repo := &mockEnrollmentRepo{enrollments: make(map[string]models.Enrollment)}
	students := &mockStudentReader{students: map[string]*models.Student{
		"s1": {ID: "s1", StudentNo: "STU-1", FullName: "First Student"},
	}}
	svc := NewEnrollmentService(repo, students, &mockAuditLogger{}, validator.New(), zap.NewNop())
	return repo, svc
}

func TestEnrollmentServiceCreate(t *testing.T) {
	repo, svc := newEnrollmentFixture()

	enrollment, err := svc.Create(context.Background(), validEnrollmentRequest())
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.Equal(t, 1, enrollment.PreferredFloor)
	assert.False(t, enrollment.ACPreference)
	assert.NotNil(t, repo.created)
}

func TestEnrollmentServiceCreateForcesACForSchool(t *testing.T) {
	_, svc := newEnrollmentFixture()

	req := validEnrollmentRequest()
	req.StudentType = models.StudentTypeSchool
	req.RoomPreferences = &dto.RoomPreferencesPayload{ACPreference: false, PreferredFloor: 2}

	enrollment, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, enrollment.ACPreference)
	assert.Equal(t, 2, enrollment.PreferredFloor)
}

func TestEnrollmentServiceCreateUnknownStudent(t *testing.T) {
	_, svc := newEnrollmentFixture()

	req := validEnrollmentRequest()
	req.StudentID = "missing"

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCreateInvalidEnum(t *testing.T) {
	_, svc := newEnrollmentFixture()

	req := validEnrollmentRequest()
	req.Gender = "OTHER"

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceReviewApprove(t *testing.T) {
	repo, svc := newEnrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", Status: models.EnrollmentStatusPending}

	enrollment, err := svc.Review(context.Background(), "e1", dto.ReviewEnrollmentRequest{Status: models.EnrollmentStatusApproved}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, enrollment.Status)
	assert.Equal(t, models.EnrollmentStatusApproved, repo.status["e1"])
}

func TestEnrollmentServiceReviewOnlyPending(t *testing.T) {
	repo, svc := newEnrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", Status: models.EnrollmentStatusApproved}

	_, err := svc.Review(context.Background(), "e1", dto.ReviewEnrollmentRequest{Status: models.EnrollmentStatusRejected}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceReviewRejectsAllocatedTarget(t *testing.T) {
	repo, svc := newEnrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", Status: models.EnrollmentStatusPending}

	_, err := svc.Review(context.Background(), "e1", dto.ReviewEnrollmentRequest{Status: models.EnrollmentStatusRoomAllocated}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
