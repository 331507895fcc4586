package types

import "time"

// JSONMap is an opaque JSON object stored in a jsonb column.
type JSONMap map[string]any

// AuditEntry is a single record in an append-only payment audit trail.
type AuditEntry struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   JSONMap   `json:"payload"`
}

// AuditTrail accumulates gateway and operator interactions in order.
// Entries are appended, never merged or replaced, so the history of a
// payment can be replayed deterministically.
type AuditTrail []AuditEntry

// Append returns the trail with a new entry recorded at now.
func (t AuditTrail) Append(source string, now time.Time, payload JSONMap) AuditTrail {
	return append(t, AuditEntry{
		Source:    source,
		Timestamp: now.UTC(),
		Payload:   payload,
	})
}

// Last returns the most recent entry from the named source, if any.
func (t AuditTrail) Last(source string) (AuditEntry, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Source == source {
			return t[i], true
		}
	}
	return AuditEntry{}, false
}
