package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"github.com/techmax/helpdesk-service/internal/authz"
	"github.com/techmax/helpdesk-service/internal/domain"
	"github.com/techmax/helpdesk-service/internal/events"
	"github.com/techmax/helpdesk-service/internal/repository"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

// CommentService manages the human side of the ticket trail and applies the
// per-role visibility filter on reads.
type CommentService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	guard      *authz.Guard
	dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(tickets repository.TicketRepository, comments repository.CommentRepository, guard *authz.Guard, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{tickets: tickets, comments: comments, guard: guard, dispatcher: dispatcher}
}

// Add appends a comment. Staff may comment on any ticket; a customer only on
// tickets they created, and never as internal.
func (s *CommentService) Add(ctx context.Context, actor *domain.User, ticketID, content string, isInternal bool) (*domain.Comment, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		if ticket.CreatedByID != actor.ID {
			return nil, apperrors.NewForbidden("no permission to comment on this ticket")
		}
		if isInternal {
			return nil, apperrors.NewForbidden("no permission to add internal notes")
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", nil)
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Kind:       domain.CommentKindUser,
		Content:    content,
		IsInternal: isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:       uuid.NewString(),
			Type:     events.EventTicketCommentAdded,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload: events.TicketCommentAddedPayload{
				CommentID:  comment.ID,
				Kind:       comment.Kind,
				IsInternal: comment.IsInternal,
			},
		})
	}
	return comment, nil
}

// List returns the ticket trail in creation order. Internal entries are
// stripped for customer viewers, including the ticket's own creator.
func (s *CommentService) List(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && ticket.CreatedByID != actor.ID {
		return nil, apperrors.NewForbidden("no access to this ticket")
	}

	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.IsStaff() {
		comments = lo.Filter(comments, func(c domain.Comment, _ int) bool {
			return !c.IsInternal
		})
	}
	return comments, nil
}

func (s *CommentService) loadTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}
