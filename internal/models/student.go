package models

import "time"

// Student represents a resident student known to the hostel office.
// Accounts and authentication live in the identity service; this table
// mirrors the subset needed for allocation and roommate matching.
type Student struct {
	ID         string    `db:"id" json:"id"`
	StudentNo  string    `db:"student_no" json:"student_no"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	Department string    `db:"department" json:"department"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
