package models

import "time"

// AuditEntry is an append-only record of a system-initiated correction or
// notable pipeline event. Entries are never updated or deleted.
type AuditEntry struct {
	ID        string                 `json:"id"`
	Component string                 `json:"component"`
	ContentID string                 `json:"content_id,omitempty"`
	Reason    string                 `json:"reason"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
