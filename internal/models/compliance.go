package models

import "time"

// AnomalySeverity tiers how far a daily action count exceeds its threshold.
type AnomalySeverity string

const (
	SeverityLow    AnomalySeverity = "LOW"
	SeverityMedium AnomalySeverity = "MEDIUM"
	SeverityHigh   AnomalySeverity = "HIGH"
)

// Anomaly flags one day where an action's volume broke its threshold.
type Anomaly struct {
	Action    string          `json:"action"`
	Date      string          `json:"date"`
	Count     int             `json:"count"`
	Threshold float64         `json:"threshold"`
	Severity  AnomalySeverity `json:"severity"`
}

// Recommendation suggests an operator action derived from report metrics.
type Recommendation struct {
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

// ComplianceReport is derived on demand from the audit trail; it is never
// persisted.
type ComplianceReport struct {
	PeriodDays       int              `json:"period_days"`
	From             time.Time        `json:"from"`
	To               time.Time        `json:"to"`
	InstitutionID    *string          `json:"institution_id,omitempty"`
	ProcessingEvents int              `json:"processing_events"`
	DeletionEvents   int              `json:"deletion_events"`
	ExportEvents     int              `json:"export_events"`
	Complaints       int              `json:"complaints"`
	SoftDeletedTotal int              `json:"soft_deleted_total"`
	OverdueUnpurged  int              `json:"overdue_unpurged"`
	Anomalies        []Anomaly        `json:"anomalies"`
	ComplianceScore  int              `json:"compliance_score"`
	Recommendations  []Recommendation `json:"recommendations"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// BackupCheck is the outcome of one backup verification probe.
type BackupCheck struct {
	Type      string    `json:"type"`
	Success   bool      `json:"success"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// BackupVerification aggregates the full check battery.
type BackupVerification struct {
	Success bool          `json:"success"`
	Results []BackupCheck `json:"results"`
}

// BackupArtifact is a row of backup run metadata written by the backup
// tooling and inspected by the verifier.
type BackupArtifact struct {
	ID         string    `db:"id" json:"id"`
	Location   string    `db:"location" json:"location"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	Checksum   string    `db:"checksum" json:"checksum"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}
