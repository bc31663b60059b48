package models

import "time"

// DeletionRequestStatus enumerates workflow states. PENDING is the only
// non-terminal state.
type DeletionRequestStatus string

const (
	DeletionRequestPending  DeletionRequestStatus = "PENDING"
	DeletionRequestApproved DeletionRequestStatus = "APPROVED"
	DeletionRequestRejected DeletionRequestStatus = "REJECTED"
)

// RejectionSeparator joins the original reason with the reviewer's
// rejection note inside the stored reason field.
const RejectionSeparator = " | REJECTED: "

// DeletionRequest gates the soft delete of a user account behind review.
type DeletionRequest struct {
	ID           string                `db:"id" json:"id"`
	TargetUserID string                `db:"target_user_id" json:"target_user_id"`
	RequesterID  string                `db:"requester_id" json:"requester_id"`
	Reason       string                `db:"reason" json:"reason"`
	Status       DeletionRequestStatus `db:"status" json:"status"`
	ReviewerID   *string               `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ReviewedAt   *time.Time            `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`
}

// DeletionRequestFilter narrows workflow listings.
type DeletionRequestFilter struct {
	Status       DeletionRequestStatus
	TargetUserID string
	Page         int
	PageSize     int
}
