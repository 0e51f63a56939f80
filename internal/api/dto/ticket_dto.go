package dto

import (
	"time"

	"github.com/techmax/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"required"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Category    domain.TicketCategory `json:"category" validate:"omitempty,oneof=HARDWARE SOFTWARE NETWORK ACCESS OTHER"`
}

// UpdateTicketRequest payload for field updates. Pointers distinguish
// "leave unchanged" from explicit values.
type UpdateTicketRequest struct {
	Title       *string                `json:"title" validate:"omitempty,max=200"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Category    *domain.TicketCategory `json:"category" validate:"omitempty,oneof=HARDWARE SOFTWARE NETWORK ACCESS OTHER"`
	Status      *domain.TicketStatus   `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required,uuid4"`
}

// EscalateTicketRequest payload.
type EscalateTicketRequest struct {
	TargetID string `json:"target_id" validate:"required,uuid4"`
	Reason   string `json:"reason" validate:"omitempty,max=500"`
}

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	Resolution string              `json:"resolution" validate:"required"`
	Status     domain.TicketStatus `json:"status" validate:"omitempty,oneof=RESOLVED CLOSED"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Note *string `json:"note" validate:"omitempty,max=500"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// AddAttachmentRequest describes attachment metadata input.
type AddAttachmentRequest struct {
	StorageKey string `json:"storage_key" validate:"required"`
	FileName   string `json:"file_name" validate:"required,max=255"`
	MimeType   string `json:"mime_type" validate:"required"`
	SizeBytes  int64  `json:"size_bytes" validate:"gte=0"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	Category      domain.TicketCategory `json:"category"`
	CreatedByID   string                `json:"created_by_id"`
	AssignedToID  *string               `json:"assigned_to_id"`
	EscalatedToID *string               `json:"escalated_to_id"`
	Resolution    *string               `json:"resolution"`
	Attachments   []AttachmentResponse  `json:"attachments,omitempty"`
	Version       int64                 `json:"version"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// CommentResponse represents a comment in the audit trail.
type CommentResponse struct {
	ID         string             `json:"id"`
	TicketID   string             `json:"ticket_id"`
	AuthorID   string             `json:"author_id"`
	Kind       domain.CommentKind `json:"kind"`
	Content    string             `json:"content"`
	IsInternal bool               `json:"is_internal"`
	CreatedAt  time.Time          `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
