package interactions

import "time"

// Entry is an immutable, append-only record of contact with a lead or
// vendor. Entries are never updated or deleted; a retried call produces a
// new entry rather than amending an old one.
type Entry struct {
	ID     string `json:"id" db:"id"`
	LeadID string `json:"lead_id" db:"lead_id"`
	UserID string `json:"user_id,omitempty" db:"user_id"`

	// Type indicates the business category of the record.
	Type Type `json:"type" db:"type"`

	// Detail is a short human-readable description for dashboard display.
	Detail string `json:"detail,omitempty" db:"detail"`

	// CallSid links the entry to the provider call when one exists.
	CallSid string `json:"call_sid,omitempty" db:"call_sid"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Type string

const (
	TypeCallPlaced    Type = "call_placed"
	TypeCallCompleted Type = "call_completed"
	TypeCallFailed    Type = "call_failed"
)
