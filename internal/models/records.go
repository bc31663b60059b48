package models

import "time"

// Note is an educator observation attached to a child, authored by a user.
type Note struct {
	ID        string     `db:"id" json:"id"`
	AuthorID  string     `db:"author_id" json:"author_id"`
	ChildID   *string    `db:"child_id" json:"child_id,omitempty"`
	Body      string     `db:"body" json:"body"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Message is a direct message between two users.
type Message struct {
	ID          string     `db:"id" json:"id"`
	SenderID    string     `db:"sender_id" json:"sender_id"`
	RecipientID string     `db:"recipient_id" json:"recipient_id"`
	Body        string     `db:"body" json:"body"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Notification is a delivered in-app notification.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// PersonalTask is a private todo owned by a user.
type PersonalTask struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	DueAt     *time.Time `db:"due_at" json:"due_at,omitempty"`
	DoneAt    *time.Time `db:"done_at" json:"done_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ClosedDay marks an institution-wide closure date.
type ClosedDay struct {
	ID            string     `db:"id" json:"id"`
	InstitutionID string     `db:"institution_id" json:"institution_id"`
	Date          time.Time  `db:"date" json:"date"`
	Reason        string     `db:"reason" json:"reason"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
