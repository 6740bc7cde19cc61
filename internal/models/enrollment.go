package models

import (
	"time"

	"github.com/lib/pq"
)

// StudentType distinguishes school and college residents. Rooms carry the
// same type so the two never mix.
type StudentType string

// Gender of the applying student; must correspond to the room block.
type Gender string

// EnrollmentStatus represents the lifecycle of an accommodation application.
type EnrollmentStatus string

const (
	StudentTypeSchool  StudentType = "SCHOOL"
	StudentTypeCollege StudentType = "COLLEGE"

	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Possible enrollment statuses. ROOM_ALLOCATED is entered and left only
// through the allocation engine; review moves PENDING to APPROVED/REJECTED.
const (
	EnrollmentStatusPending       EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved      EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected      EnrollmentStatus = "REJECTED"
	EnrollmentStatusRoomAllocated EnrollmentStatus = "ROOM_ALLOCATED"
)

// Enrollment captures a student's accommodation application together with
// their room preferences.
type Enrollment struct {
	ID                  string           `db:"id" json:"id"`
	StudentID           string           `db:"student_id" json:"student_id"`
	StudentType         StudentType      `db:"student_type" json:"student_type"`
	Gender              Gender           `db:"gender" json:"gender"`
	State               string           `db:"state" json:"state"`
	HostelName          string           `db:"hostel_name" json:"hostel_name"`
	RoomType            string           `db:"room_type" json:"room_type"`
	MealPlan            string           `db:"meal_plan" json:"meal_plan"`
	SpecialRequirements string           `db:"special_requirements" json:"special_requirements,omitempty"`
	PreferredFloor      int              `db:"preferred_floor" json:"preferred_floor"`
	PreferredRoommates  pq.StringArray   `db:"preferred_roommates" json:"preferred_roommates"`
	ACPreference        bool             `db:"ac_preference" json:"ac_preference"`
	SameStatePreference bool             `db:"same_state_preference" json:"same_state_preference"`
	Status              EnrollmentStatus `db:"status" json:"status"`
	AllocatedRoomID     *string          `db:"allocated_room_id" json:"allocated_room_id,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// Allocated reports whether the enrollment currently holds a room.
func (e *Enrollment) Allocated() bool {
	return e.AllocatedRoomID != nil && *e.AllocatedRoomID != ""
}

// EnrollmentDetail enriches Enrollment with student and room context.
type EnrollmentDetail struct {
	Enrollment
	StudentName string  `db:"student_name" json:"student_name"`
	StudentNo   string  `db:"student_no" json:"student_no"`
	RoomNumber  *string `db:"room_number" json:"room_number,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
