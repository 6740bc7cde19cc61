package service

import (
	"fmt"

	"github.com/hosteldesk/hostel-api/internal/models"
)

// CompatibilityResult reports whether a student may be placed in a room.
// CapacityExceeded stands apart from Reasons because it can never be
// overridden; Reasons lists the advisory rules that were violated.
type CompatibilityResult struct {
	CapacityExceeded bool
	Reasons          []string
}

// OK reports whether the placement is fully legal.
func (r CompatibilityResult) OK() bool {
	return !r.CapacityExceeded && len(r.Reasons) == 0
}

// CheckCompatibility decides whether the enrollment may be placed in the
// room given its current occupants' enrollments. Pure function, no side
// effects; callers decide what to do with the verdict.
func CheckCompatibility(enrollment *models.Enrollment, room *models.Room, occupants []models.Enrollment) CompatibilityResult {
	var result CompatibilityResult

	if room.AtCapacity() {
		result.CapacityExceeded = true
	}

	if room.Type != enrollment.StudentType {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("room %s is for %s students only", room.RoomNumber, room.Type))
	}

	if !room.MatchesGender(enrollment.Gender) {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("room %s is in the %s block which does not match the student's gender", room.RoomNumber, room.Block))
	}

	if enrollment.StudentType == models.StudentTypeSchool && !room.HasAC {
		result.Reasons = append(result.Reasons, "AC rooms are compulsory for school students")
	}

	for _, occupant := range occupants {
		if occupant.StudentType != enrollment.StudentType {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("room %s already houses %s students; %s students may only stay with other %s students",
					room.RoomNumber, occupant.StudentType, enrollment.StudentType, enrollment.StudentType))
			break
		}
	}
	for _, occupant := range occupants {
		if occupant.Gender != enrollment.Gender {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("room %s houses students of a different gender; rooms are single-gender", room.RoomNumber))
			break
		}
	}

	return result
}

// occupantsCompatible is the unconditional variant used by auto-allocation:
// a room whose occupants differ in type or gender is removed from the
// candidate set entirely rather than reported.
func occupantsCompatible(enrollment *models.Enrollment, occupants []models.Enrollment) bool {
	for _, occupant := range occupants {
		if occupant.StudentType != enrollment.StudentType || occupant.Gender != enrollment.Gender {
			return false
		}
	}
	return true
}
