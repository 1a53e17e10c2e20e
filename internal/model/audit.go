package model

import "time"

// AuditAction is the kind of change an audit entry records.
type AuditAction string

// Audit actions.
const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// Change is a single field-level difference.
type Change struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// AuditEntry is an immutable record of one state change.
type AuditEntry struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	EntityID   string            `json:"entity_id"`
	Action     AuditAction       `json:"action"`
	Actor      string            `json:"actor"`
	RecordedAt time.Time         `json:"recorded_at"`
	Changes    []Change          `json:"changes"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
