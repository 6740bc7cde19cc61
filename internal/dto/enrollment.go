package dto

import "github.com/hosteldesk/hostel-api/internal/models"

// RoomPreferencesPayload mirrors the preference block of an application.
type RoomPreferencesPayload struct {
	PreferredFloor      int      `json:"preferred_floor"`
	PreferredRoommates  []string `json:"preferred_roommates"`
	ACPreference        bool     `json:"ac_preference"`
	SameStatePreference bool     `json:"same_state_preference"`
}

// CreateEnrollmentRequest payload for submitting an accommodation application.
type CreateEnrollmentRequest struct {
	StudentID           string                  `json:"student_id" validate:"required"`
	StudentType         models.StudentType      `json:"student_type" validate:"required"`
	Gender              models.Gender           `json:"gender" validate:"required"`
	State               string                  `json:"state" validate:"required"`
	HostelName          string                  `json:"hostel_name" validate:"required"`
	RoomType            string                  `json:"room_type" validate:"required"`
	MealPlan            string                  `json:"meal_plan" validate:"required"`
	SpecialRequirements string                  `json:"special_requirements"`
	RoomPreferences     *RoomPreferencesPayload `json:"room_preferences"`
}

// ReviewEnrollmentRequest captures the admin review decision.
type ReviewEnrollmentRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required"`
}
