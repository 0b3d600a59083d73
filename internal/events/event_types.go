package events

import (
	"time"

	"github.com/meditrack/staffcore/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventStaffRegistered EventType = "staff_registered"
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventPasswordChanged EventType = "password_changed"
	EventLoggedOut       EventType = "logged_out"
)

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	StaffID   int64       `json:"staff_id,omitempty"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// StaffRegisteredPayload payload.
type StaffRegisteredPayload struct {
	Role domain.StaffRole `json:"role"`
}

// LoginFailedPayload payload. Reason is internal only and never sent to callers.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}
