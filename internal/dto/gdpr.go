package dto

// SoftDeleteRequest carries the operator's reason for a soft delete.
type SoftDeleteRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CleanupRequest optionally overrides every retention window for one run.
type CleanupRequest struct {
	RetentionMonths *int `json:"retention_months" binding:"omitempty,gt=0"`
}

// CreateDeletionRequest opens a reviewed account-deletion request.
type CreateDeletionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReviewDeletionRequest carries the reviewer's rejection reason.
type ReviewDeletionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RetentionPeriod is one row of the retention policy dump.
type RetentionPeriod struct {
	EntityType      string `json:"entity_type"`
	RetentionMonths int    `json:"retention_months"`
}
