package models

import "time"

// User represents a guardian or staff account stored in the users table.
type User struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	FullName      string     `db:"full_name" json:"full_name"`
	Role          Role       `db:"role" json:"role"`
	InstitutionID *string    `db:"institution_id" json:"institution_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
