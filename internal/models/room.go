package models

import "time"

// RoomBlock identifies the wing a room belongs to. Blocks are gendered:
// MALE students live in the boys block, FEMALE students in the girls block.
type RoomBlock string

// RoomStatus is derived from occupancy versus capacity. It is never stored
// or set directly; DeriveStatus is the single source of truth.
type RoomStatus string

const (
	BlockBoys  RoomBlock = "BOYS"
	BlockGirls RoomBlock = "GIRLS"

	RoomStatusAvailable         RoomStatus = "AVAILABLE"
	RoomStatusPartiallyOccupied RoomStatus = "PARTIALLY_OCCUPIED"
	RoomStatusFullyOccupied     RoomStatus = "FULLY_OCCUPIED"
)

// Room is a physical accommodation unit. Occupancy is maintained by the
// allocation engine only; room management never touches it.
type Room struct {
	ID         string      `db:"id" json:"id"`
	RoomNumber string      `db:"room_number" json:"room_number"`
	Block      RoomBlock   `db:"block" json:"block"`
	Type       StudentType `db:"type" json:"type"`
	HasAC      bool        `db:"has_ac" json:"has_ac"`
	Floor      int         `db:"floor" json:"floor"`
	Capacity   int         `db:"capacity" json:"capacity"`
	Occupancy  int         `db:"occupancy" json:"occupancy"`
	Status     RoomStatus  `db:"-" json:"status"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// DeriveStatus computes the room status from occupancy and capacity.
func (r *Room) DeriveStatus() RoomStatus {
	switch {
	case r.Occupancy <= 0:
		return RoomStatusAvailable
	case r.Occupancy < r.Capacity:
		return RoomStatusPartiallyOccupied
	default:
		return RoomStatusFullyOccupied
	}
}

// Refresh recomputes the derived status in place.
func (r *Room) Refresh() {
	r.Status = r.DeriveStatus()
}

// AtCapacity reports whether the room is physically full.
func (r *Room) AtCapacity() bool {
	return r.Occupancy >= r.Capacity
}

// MatchesGender reports whether the room block corresponds to the gender.
func (r *Room) MatchesGender(g Gender) bool {
	return (g == GenderMale && r.Block == BlockBoys) ||
		(g == GenderFemale && r.Block == BlockGirls)
}

// RoomOccupant is a room membership entry; ordering follows allocation order.
type RoomOccupant struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentNo   string    `db:"student_no" json:"student_no"`
	FullName    string    `db:"full_name" json:"full_name"`
	AllocatedAt time.Time `db:"allocated_at" json:"allocated_at"`
}

// RoomDetail is a room with its ordered occupant list.
type RoomDetail struct {
	Room
	Occupants []RoomOccupant `json:"occupants"`
}

// RoomFilter captures the candidate-room search predicate used both by the
// admin listing and by auto-allocation.
type RoomFilter struct {
	Type    StudentType
	Block   RoomBlock
	HasAC   *bool
	Floor   *int
	NotFull bool
}
