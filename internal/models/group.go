package models

import "time"

// Group is a room/class inside an institution.
type Group struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	InstitutionID string     `db:"institution_id" json:"institution_id"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
