package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hosteldesk/hostel-api/internal/models"
)

func collegeRoom(occupancy int) *models.Room {
	r := &models.Room{
		ID:         "room-1",
		RoomNumber: "B-101",
		Block:      models.BlockBoys,
		Type:       models.StudentTypeCollege,
		HasAC:      false,
		Floor:      1,
		Capacity:   4,
		Occupancy:  occupancy,
	}
	r.Refresh()
	return r
}

func collegeEnrollment() *models.Enrollment {
	return &models.Enrollment{
		ID:          "enr-1",
		StudentID:   "stu-1",
		StudentType: models.StudentTypeCollege,
		Gender:      models.GenderMale,
		Status:      models.EnrollmentStatusApproved,
	}
}

func TestCheckCompatibilityAllRulesPass(t *testing.T) {
	result := CheckCompatibility(collegeEnrollment(), collegeRoom(2), []models.Enrollment{
		{StudentType: models.StudentTypeCollege, Gender: models.GenderMale},
	})
	assert.True(t, result.OK())
	assert.False(t, result.CapacityExceeded)
	assert.Empty(t, result.Reasons)
}

func TestCheckCompatibilityCapacityStandsApart(t *testing.T) {
	result := CheckCompatibility(collegeEnrollment(), collegeRoom(4), nil)
	assert.True(t, result.CapacityExceeded)
	assert.Empty(t, result.Reasons)
	assert.False(t, result.OK())
}

func TestCheckCompatibilityTypeMismatch(t *testing.T) {
	enrollment := collegeEnrollment()
	enrollment.StudentType = models.StudentTypeSchool

	result := CheckCompatibility(enrollment, collegeRoom(0), nil)
	require.Len(t, result.Reasons, 2)
	assert.Contains(t, result.Reasons[0], "COLLEGE students only")
	assert.Contains(t, result.Reasons[1], "AC rooms are compulsory")
}

func TestCheckCompatibilityGenderMismatch(t *testing.T) {
	enrollment := collegeEnrollment()
	enrollment.Gender = models.GenderFemale

	result := CheckCompatibility(enrollment, collegeRoom(0), nil)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "BOYS block")
}

func TestCheckCompatibilityOccupantMismatch(t *testing.T) {
	result := CheckCompatibility(collegeEnrollment(), collegeRoom(1), []models.Enrollment{
		{StudentType: models.StudentTypeSchool, Gender: models.GenderMale},
	})
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "already houses SCHOOL students")
}

func TestCheckCompatibilityCollectsAllReasons(t *testing.T) {
	enrollment := collegeEnrollment()
	enrollment.StudentType = models.StudentTypeSchool
	enrollment.Gender = models.GenderFemale

	room := collegeRoom(4)
	result := CheckCompatibility(enrollment, room, []models.Enrollment{
		{StudentType: models.StudentTypeCollege, Gender: models.GenderMale},
	})
	assert.True(t, result.CapacityExceeded)
	// type, block, AC, occupant type, occupant gender
	assert.Len(t, result.Reasons, 5)
}

func TestOccupantsCompatible(t *testing.T) {
	enrollment := collegeEnrollment()

	assert.True(t, occupantsCompatible(enrollment, nil))
	assert.True(t, occupantsCompatible(enrollment, []models.Enrollment{
		{StudentType: models.StudentTypeCollege, Gender: models.GenderMale},
	}))
	assert.False(t, occupantsCompatible(enrollment, []models.Enrollment{
		{StudentType: models.StudentTypeSchool, Gender: models.GenderMale},
	}))
	assert.False(t, occupantsCompatible(enrollment, []models.Enrollment{
		{StudentType: models.StudentTypeCollege, Gender: models.GenderFemale},
	}))
}
