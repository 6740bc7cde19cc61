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

// EnrollmentRepository handles persistence of accommodation applications.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, student_type, gender, state, hostel_name, room_type, meal_plan,
        special_requirements, preferred_floor, preferred_roommates, ac_preference, same_state_preference,
        status, allocated_room_id, created_at, updated_at`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN rooms rm ON rm.id = e.allocated_room_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "e.created_at",
		"student_name": "s.full_name",
		"status":       "e.status",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.student_type, e.gender, e.state, e.hostel_name,
        e.room_type, e.meal_plan, e.special_requirements, e.preferred_floor, e.preferred_roommates,
        e.ac_preference, e.same_state_preference, e.status, e.allocated_room_id, e.created_at, e.updated_at,
        s.full_name AS student_name, s.student_no AS student_no, rm.room_number AS room_number
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and room context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.student_type, e.gender, e.state, e.hostel_name, e.room_type,
        e.meal_plan, e.special_requirements, e.preferred_floor, e.preferred_roommates, e.ac_preference,
        e.same_state_preference, e.status, e.allocated_room_id, e.created_at, e.updated_at,
        s.full_name AS student_name, s.student_no AS student_no, rm.room_number AS room_number
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN rooms rm ON rm.id = e.allocated_room_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new application in PENDING state.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	const query = `INSERT INTO enrollments (id, student_id, student_type, gender, state, hostel_name, room_type,
        meal_plan, special_requirements, preferred_floor, preferred_roommates, ac_preference,
        same_state_preference, status, allocated_room_id, created_at, updated_at)
        VALUES (:id, :student_id, :student_type, :gender, :state, :hostel_name, :room_type,
        :meal_plan, :special_requirements, :preferred_floor, :preferred_roommates, :ac_preference,
        :same_state_preference, :status, :allocated_room_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus updates the review status of an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ListApprovedUnallocated returns enrollments awaiting a room, oldest first.
// Creation order fixes the greedy batch's processing sequence.
func (r *EnrollmentRepository) ListApprovedUnallocated(ctx context.Context) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE status = $1 AND allocated_room_id IS NULL ORDER BY created_at ASC`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, models.EnrollmentStatusApproved); err != nil {
		return nil, fmt.Errorf("list unallocated enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveByRoom returns the enrollments of a room's current occupants,
// restricted to the statuses that matter for compatibility checks.
func (r *EnrollmentRepository) ListActiveByRoom(ctx context.Context, roomID string) ([]models.Enrollment, error) {
	const query = `SELECT e.id, e.student_id, e.student_type, e.gender, e.state, e.hostel_name, e.room_type,
        e.meal_plan, e.special_requirements, e.preferred_floor, e.preferred_roommates, e.ac_preference,
        e.same_state_preference, e.status, e.allocated_room_id, e.created_at, e.updated_at
        FROM enrollments e
        JOIN room_occupants ro ON ro.student_id = e.student_id
        WHERE ro.room_id = $1 AND e.status IN ($2, $3)`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, roomID,
		models.EnrollmentStatusApproved, models.EnrollmentStatusRoomAllocated); err != nil {
		return nil, fmt.Errorf("list room occupant enrollments: %w", err)
	}
	return enrollments, nil
}
