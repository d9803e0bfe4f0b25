package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published on the event bus.
const (
	EventInquiryCreated       = "inquiry.created"
	EventInquiryStatusChanged = "inquiry.status_changed"
	EventReviewSubmitted      = "review.submitted"
	EventReviewStatusChanged  = "review.status_changed"
)

// Envelope is the canonical wrapper for every event the service emits.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	SessionID     string          `json:"session_id,omitempty"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// StatusChange is the payload of the *.status_changed events.
type StatusChange struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
