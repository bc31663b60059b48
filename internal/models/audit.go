package models

import "time"

// Audit action codes form a closed vocabulary. The compliance analyzer
// classifies every code into exactly one of the report buckets.
const (
	AuditActionUserSoftDeleted        = "USER_SOFT_DELETED"
	AuditActionChildSoftDeleted       = "CHILD_SOFT_DELETED"
	AuditActionGroupSoftDeleted       = "GROUP_SOFT_DELETED"
	AuditActionInstitutionSoftDeleted = "INSTITUTION_SOFT_DELETED"
	AuditActionDeleteRequestCreated   = "GDPR_DELETE_REQUEST_CREATED"
	AuditActionDeleteRequestApproved  = "GDPR_DELETE_REQUEST_APPROVED"
	AuditActionDeleteRequestRejected  = "GDPR_DELETE_REQUEST_REJECTED"
	AuditActionRetentionPurgeRun      = "RETENTION_PURGE_RUN"
	AuditActionDataExported           = "DATA_EXPORTED"
	AuditActionPrivacyComplaint       = "PRIVACY_COMPLAINT"
	AuditActionBackupVerified         = "BACKUP_VERIFIED"
	AuditActionDataProcessed          = "DATA_PROCESSED"
)

// SoftDeleteAction maps an entity type to its audit action code.
func SoftDeleteAction(t EntityType) string {
	switch t {
	case EntityUser:
		return AuditActionUserSoftDeleted
	case EntityChild:
		return AuditActionChildSoftDeleted
	case EntityGroup:
		return AuditActionGroupSoftDeleted
	case EntityInstitution:
		return AuditActionInstitutionSoftDeleted
	default:
		return AuditActionDataProcessed
	}
}

// DeletionActions are the codes counted as deletions by the analyzer.
var DeletionActions = []string{
	AuditActionUserSoftDeleted,
	AuditActionChildSoftDeleted,
	AuditActionGroupSoftDeleted,
	AuditActionInstitutionSoftDeleted,
	AuditActionRetentionPurgeRun,
}

// PrivacyAuditLog is one immutable entry of the privacy audit trail.
// Entries are only ever appended; the purge job erases them once their own
// retention window lapses.
type PrivacyAuditLog struct {
	ID            string     `db:"id" json:"id"`
	ActorID       string     `db:"actor_id" json:"actor_id"`
	ActorName     string     `db:"actor_name" json:"actor_name"`
	Action        string     `db:"action" json:"action"`
	EntityType    EntityType `db:"entity_type" json:"entity_type"`
	EntityID      string     `db:"entity_id" json:"entity_id"`
	Detail        string     `db:"detail" json:"detail"`
	InstitutionID *string    `db:"institution_id" json:"institution_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// AuditLogFilter narrows audit trail queries.
type AuditLogFilter struct {
	DateFrom          *time.Time
	DateTo            *time.Time
	Action            string
	ActorNameContains string
	InstitutionID     *string
	Limit             int
}
