package models

import "time"

// Child represents an enrolled child. Parent links survive a parent's soft
// delete; only the institution cascade marks children.
type Child struct {
	ID        string     `db:"id" json:"id"`
	FullName  string     `db:"full_name" json:"full_name"`
	BirthDate time.Time  `db:"birth_date" json:"birth_date"`
	GroupID   *string    `db:"group_id" json:"group_id,omitempty"`
	ParentID  *string    `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
