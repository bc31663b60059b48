package models

import "time"

// PrivacyExport bundles every personal record held for one user, in the
// shape handed out on a data-access request.
type PrivacyExport struct {
	User          *User          `json:"user"`
	Notes         []Note         `json:"notes"`
	Messages      []Message      `json:"messages"`
	Notifications []Notification `json:"notifications"`
	PersonalTasks []PersonalTask `json:"personal_tasks"`
	GeneratedAt   time.Time      `json:"generated_at"`
}
