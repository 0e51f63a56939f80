package events

import (
	"time"

	"github.com/techmax/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventTicketDeleted      EventType = "ticket_deleted"
	EventTicketCommentAdded EventType = "ticket_comment_added"
	EventUserRoleChanged    EventType = "user_role_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
	Category domain.TicketCategory `json:"category"`
}

// TicketTransitionedPayload carries one lifecycle transition.
type TicketTransitionedPayload struct {
	Transition string              `json:"transition"`
	FromStatus domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus `json:"to_status"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Title string `json:"title"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID  string             `json:"comment_id"`
	Kind       domain.CommentKind `json:"kind"`
	IsInternal bool               `json:"is_internal"`
}

// UserRoleChangedPayload payload.
type UserRoleChangedPayload struct {
	UserID  string          `json:"user_id"`
	OldRole domain.RoleName `json:"old_role,omitempty"`
	NewRole domain.RoleName `json:"new_role"`
}
