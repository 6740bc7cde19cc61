package models

// AllocationResult is returned by a successful manual allocation. Warnings
// carry the compatibility rules that were bypassed via override.
type AllocationResult struct {
	Enrollment *Enrollment `json:"enrollment"`
	Room       *Room       `json:"room"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// AllocationOutcome records one successful auto-allocation entry.
type AllocationOutcome struct {
	EnrollmentID string `json:"enrollment_id"`
	RoomID       string `json:"room_id"`
	RoomNumber   string `json:"room_number"`
}

// AllocationFailure records one enrollment the batch could not place. The
// reason is shown verbatim to the operator.
type AllocationFailure struct {
	EnrollmentID string `json:"enrollment_id"`
	Reason       string `json:"reason"`
}

// AutoAllocationReport is the aggregate outcome of a batch run. Partial
// success is the normal case, not an error.
type AutoAllocationReport struct {
	Success []AllocationOutcome `json:"success"`
	Failed  []AllocationFailure `json:"failed"`
}
