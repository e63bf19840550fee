package types

import (
	"encoding/json"
	"time"
)

// Event kinds published on the events channel.
const (
	EventUserRegistered = "user.registered"
	EventNoteCreated    = "note.created"
	EventNoteUpdated    = "note.updated"
	EventNoteDeleted    = "note.deleted"
	EventNotesExported  = "notes.exported"
)

// Event is a domain event describing a change made through the API.
type Event struct {
	Kind       string          `json:"kind"`
	UserID     int64           `json:"user_id"`
	ResourceID int64           `json:"resource_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
