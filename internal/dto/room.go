package dto

import "github.com/hosteldesk/hostel-api/internal/models"

// CreateRoomRequest payload for registering a room. HasAC is a pointer so an
// omitted flag can default per room type while an explicit false is still
// distinguishable.
type CreateRoomRequest struct {
	RoomNumber string             `json:"room_number" validate:"required"`
	Block      models.RoomBlock   `json:"block" validate:"required"`
	Type       models.StudentType `json:"type" validate:"required"`
	HasAC      *bool              `json:"has_ac"`
	Floor      int                `json:"floor"`
	Capacity   int                `json:"capacity"`
}

// UpdateRoomRequest payload for amending room attributes.
type UpdateRoomRequest struct {
	HasAC *bool `json:"has_ac"`
	Floor *int  `json:"floor"`
}
