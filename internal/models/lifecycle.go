package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EntityType identifies a record type managed by the lifecycle engine.
type EntityType string

const (
	EntityUser         EntityType = "user"
	EntityChild        EntityType = "child"
	EntityGroup        EntityType = "group"
	EntityInstitution  EntityType = "institution"
	EntityNote         EntityType = "note"
	EntityMessage      EntityType = "message"
	EntityNotification EntityType = "notification"
	EntityPersonalTask EntityType = "personal_task"
	EntityClosedDay    EntityType = "closed_day"
	EntityFailedLogin  EntityType = "failed_login"
	EntityActivityLog  EntityType = "activity_log"
	EntityAuditLog     EntityType = "audit_log"
)

// EntityDescriptor captures the lifecycle traits of one entity type.
//
// SoftDeletable types are purged against their deleted_at timestamp; the
// rest (failed logins, activity logs, the audit trail itself) age out on
// created_at. IdempotentSoftDelete preserves the platform behaviour where
// soft-deleting an already-deleted group or institution succeeds silently
// while a user returns ALREADY_DELETED.
type EntityDescriptor struct {
	Type                 EntityType
	Table                string
	RetentionMonths      int
	SoftDeletable        bool
	IdempotentSoftDelete bool
}

var descriptors = map[EntityType]EntityDescriptor{
	EntityUser:         {Type: EntityUser, Table: "users", RetentionMonths: 36, SoftDeletable: true},
	EntityChild:        {Type: EntityChild, Table: "children", RetentionMonths: 60, SoftDeletable: true},
	EntityGroup:        {Type: EntityGroup, Table: "groups", RetentionMonths: 12, SoftDeletable: true, IdempotentSoftDelete: true},
	EntityInstitution:  {Type: EntityInstitution, Table: "institutions", RetentionMonths: 12, SoftDeletable: true, IdempotentSoftDelete: true},
	EntityNote:         {Type: EntityNote, Table: "notes", RetentionMonths: 24, SoftDeletable: true},
	EntityMessage:      {Type: EntityMessage, Table: "messages", RetentionMonths: 12, SoftDeletable: true},
	EntityNotification: {Type: EntityNotification, Table: "notifications", RetentionMonths: 6, SoftDeletable: true},
	EntityPersonalTask: {Type: EntityPersonalTask, Table: "personal_tasks", RetentionMonths: 6, SoftDeletable: true},
	EntityClosedDay:    {Type: EntityClosedDay, Table: "closed_days", RetentionMonths: 12, SoftDeletable: true},
	EntityFailedLogin:  {Type: EntityFailedLogin, Table: "failed_logins", RetentionMonths: 3},
	EntityActivityLog:  {Type: EntityActivityLog, Table: "activity_logs", RetentionMonths: 12},
	EntityAuditLog:     {Type: EntityAuditLog, Table: "privacy_audit_logs", RetentionMonths: 120},
}

// Descriptor returns the lifecycle descriptor for a type.
func Descriptor(t EntityType) (EntityDescriptor, bool) {
	d, ok := descriptors[t]
	return d, ok
}

// AllEntityTypes returns every registered type in stable order.
func AllEntityTypes() []EntityType {
	types := make([]EntityType, 0, len(descriptors))
	for t := range descriptors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ParseEntityType resolves user input ("user", "Child") to an EntityType.
func ParseEntityType(raw string) (EntityType, bool) {
	t := EntityType(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := descriptors[t]
	return t, ok
}

// CascadeOrder lists the marking order for a soft-delete cascade, root
// first. Owners are marked before their dependents so a partially visible
// cascade can never expose an orphaned dependent as live.
//
// A user cascade deliberately stops at the user: children keep their
// ownership, and the user's notes, messages and tasks stay live on their own
// retention clocks.
func CascadeOrder(root EntityType) []EntityType {
	switch root {
	case EntityInstitution:
		return []EntityType{EntityInstitution, EntityGroup, EntityChild}
	case EntityGroup:
		return []EntityType{EntityGroup}
	case EntityChild:
		return []EntityType{EntityChild}
	case EntityUser:
		return []EntityType{EntityUser}
	default:
		return nil
	}
}

// PurgeOrder lists every purgeable type with dependents strictly before
// their owners, so each per-type batch can hard-delete without tripping
// referential constraints. The audit trail goes last: it documents every
// other purge before aging out itself.
var PurgeOrder = []EntityType{
	EntityNote,
	EntityMessage,
	EntityPersonalTask,
	EntityNotification,
	EntityClosedDay,
	EntityFailedLogin,
	EntityActivityLog,
	EntityChild,
	EntityGroup,
	EntityUser,
	EntityInstitution,
	EntityAuditLog,
}

// RetentionCutoff computes the purge threshold for a retention window
// expressed in whole months.
func RetentionCutoff(now time.Time, months int) time.Time {
	return now.AddDate(0, -months, 0)
}

// RecordHeader is the minimal lifecycle view of a stored record.
type RecordHeader struct {
	ID            string     `db:"id" json:"id"`
	EntityType    EntityType `db:"-" json:"entity_type"`
	DisplayName   string     `db:"display_name" json:"display_name"`
	InstitutionID *string    `db:"institution_id" json:"institution_id,omitempty"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// CascadeCounts records how many rows each type contributed to a cascade.
type CascadeCounts map[EntityType]int64

// Summary renders counts as "child=5, group=2" in purge order for stable
// audit details.
func (c CascadeCounts) Summary() string {
	if len(c) == 0 {
		return ""
	}
	parts := make([]string, 0, len(c))
	for _, t := range PurgeOrder {
		if n, ok := c[t]; ok && n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", t, n))
		}
	}
	return strings.Join(parts, ", ")
}

// CascadeResult is returned by a soft-delete cascade.
type CascadeResult struct {
	Primary  RecordHeader  `json:"primary"`
	Cascaded CascadeCounts `json:"cascaded"`
	NoOp     bool          `json:"no_op,omitempty"`
}

// PendingDeletion annotates a soft-deleted record with its purge horizon.
type PendingDeletion struct {
	EntityType                 EntityType `json:"entity_type"`
	ID                         string     `json:"id"`
	DisplayName                string     `json:"display_name"`
	DeletedAt                  time.Time  `json:"deleted_at"`
	RetentionMonths            int        `json:"retention_months"`
	PermanentDeletionAt        time.Time  `json:"permanent_deletion_at"`
	DaysUntilPermanentDeletion int        `json:"days_until_permanent_deletion"`
}

// PurgeFailure records a per-type purge error without aborting the run.
type PurgeFailure struct {
	EntityType EntityType `json:"entity_type"`
	Error      string     `json:"error"`
}

// PurgeResult summarises one purge run.
type PurgeResult struct {
	Purged          map[EntityType]int64 `json:"purged"`
	Failures        []PurgeFailure       `json:"failures,omitempty"`
	TotalPurged     int64                `json:"total_purged"`
	RetentionMonths map[EntityType]int   `json:"retention_months"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
}
