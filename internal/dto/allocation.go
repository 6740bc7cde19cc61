package dto

// AllocateRoomRequest payload for the manual assignment action. Override
// bypasses compatibility rules 2-5; physical capacity is never bypassed.
type AllocateRoomRequest struct {
	RoomID   string `json:"room_id" validate:"required"`
	Override bool   `json:"override"`
}
