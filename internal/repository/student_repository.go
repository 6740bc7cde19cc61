package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/hosteldesk/hostel-api/internal/models"
)

// StudentRepository reads the resident roster mirrored from the identity
// service.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by their internal ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, student_no, full_name, email, department, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ResolveStudentNos maps external student numbers (the identifiers students
// quote in roommate preferences) to internal student IDs. Unknown numbers
// are silently skipped.
func (r *StudentRepository) ResolveStudentNos(ctx context.Context, studentNos []string) ([]string, error) {
	if len(studentNos) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(studentNos))
	args := make([]interface{}, len(studentNos))
	for i, no := range studentNos {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = no
	}
	query := fmt.Sprintf(`SELECT id FROM students WHERE student_no IN (%s)`, strings.Join(placeholders, ","))
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("resolve student numbers: %w", err)
	}
	return ids, nil
}
