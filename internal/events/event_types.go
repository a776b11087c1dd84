package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventActorRegistered EventType = "actor_registered"
	EventActorLoggedIn   EventType = "actor_logged_in"
	EventActorLoggedOut  EventType = "actor_logged_out"
)

// Event represents an authentication event emitted by services. It never
// carries credentials or tokens.
type Event struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	ActorID   string           `json:"actor_id"`
	ActorKind domain.ActorKind `json:"actor_kind"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   any              `json:"payload,omitempty"`
}

// NewEvent stamps an event for the given actor.
func NewEvent(eventType EventType, actorID string, kind domain.ActorKind, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID,
		ActorKind: kind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoggedOutPayload payload.
type LoggedOutPayload struct {
	Revoked bool `json:"revoked"`
}
