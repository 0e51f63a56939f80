package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/techmax/helpdesk-service/internal/authz"
	"github.com/techmax/helpdesk-service/internal/domain"
	"github.com/techmax/helpdesk-service/internal/events"
	"github.com/techmax/helpdesk-service/internal/repository"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

// Resolution text shorter than this is rejected.
const minResolutionLength = 5

// LifecycleService is the single write path for ticket state: every status,
// assignment, escalation and resolution change goes through one of its
// transition methods. Each transition validates identity, role/ownership and
// the current state before mutating anything, so a rejection never leaves
// partial state behind.
type LifecycleService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	users       repository.UserRepository
	guard       *authz.Guard
	dispatcher  events.Dispatcher
}

// LifecycleDependencies bundles collaborators for the engine.
type LifecycleDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	UserRepo       repository.UserRepository
	Guard          *authz.Guard
	Dispatcher     events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
}

// TicketUpdateInput describes a non-status field update. Nil means "leave
// unchanged". Status, assignment, escalation and resolution have no fields
// here: those mutate only through their transitions.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Category    *domain.TicketCategory
	Status      *domain.TicketStatus
}

// TicketListFilter describes listing parameters accepted from callers.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Categories  []domain.TicketCategory
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewLifecycleService constructs the engine.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		users:       deps.UserRepo,
		guard:       deps.Guard,
		dispatcher:  deps.Dispatcher,
	}
}

// Create opens a new ticket for any active authenticated identity.
func (s *LifecycleService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	ticket := &domain.Ticket{
		Title:           title,
		Description:     description,
		Status:          domain.TicketStatusOpen,
		Priority:        input.Priority,
		Category:        input.Category,
		CreatedByID:     actor.ID,
		LastUpdatedByID: &actor.ID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Category == "" {
		ticket.Category = domain.TicketCategoryOther
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
			Category: ticket.Category,
		},
	})
	return ticket, nil
}

// Get fetches a ticket with its attachments, enforcing view eligibility:
// staff see everything, customers only tickets they created.
func (s *LifecycleService) Get(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("no access to this ticket")
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Attachments = attachments
	return ticket, nil
}

// List returns tickets visible to the actor. Customers are always scoped to
// their own tickets; staff see all.
func (s *LifecycleService) List(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	repoFilter := s.repoFilter(filter)
	if !actor.IsStaff() {
		repoFilter.CreatedByID = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListMine returns tickets the actor created. This is a scoped filter, not
// an access restriction.
func (s *LifecycleService) ListMine(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	repoFilter := s.repoFilter(filter)
	repoFilter.CreatedByID = &actor.ID
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAssignedToMe returns tickets assigned to the acting staff member.
func (s *LifecycleService) ListAssignedToMe(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := s.guard.RequireRank(actor, domain.RoleAgent); err != nil {
		return nil, err
	}
	repoFilter := s.repoFilter(filter)
	repoFilter.AssignedToID = &actor.ID
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateFields applies non-status field changes. Admin and supervisor may
// update any ticket, an agent only tickets they created or are assigned to,
// a customer only tickets they created and only title/description; any other
// field in a customer request is rejected naming the field.
func (s *LifecycleService) UpdateFields(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canUpdate(actor, ticket) {
		return nil, apperrors.NewForbidden("no permission to update this ticket")
	}
	if actor.Rank() < domain.RoleAgent.Rank() {
		if field, ok := firstDisallowedCustomerField(input); ok {
			return nil, apperrors.NewForbiddenField(field)
		}
	}
	if input.Status != nil {
		return nil, apperrors.NewValidationError(
			"status cannot be changed through a field update; use a lifecycle transition",
			map[string]any{"field": "status"})
	}

	next := *ticket
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title must not be empty", nil)
		}
		next.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description must not be empty", nil)
		}
		next.Description = description
	}
	if input.Priority != nil {
		next.Priority = *input.Priority
	}
	if input.Category != nil {
		next.Category = *input.Category
	}
	next.LastUpdatedByID = &actor.ID

	if err := s.saveTicket(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Assign sets the assignee and moves an OPEN ticket to IN_PROGRESS.
// Requires supervisor rank or above.
func (s *LifecycleService) Assign(ctx context.Context, actor *domain.User, ticketID, assigneeID string) (*domain.Ticket, error) {
	if err := s.guard.RequireRank(actor, domain.RoleSupervisor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.loadUser(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee is deactivated", map[string]any{"user_id": assigneeID})
	}

	next := *ticket
	fromStatus := next.Status
	next.AssignedToID = &assignee.ID
	if next.Status == domain.TicketStatusOpen {
		next.Status = domain.TicketStatusInProgress
	}
	next.LastUpdatedByID = &actor.ID

	if err := s.saveTicket(ctx, &next); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, actor, &next, "assign", fromStatus)
	return &next, nil
}

// Escalate hands a ticket to a higher authority and parks it WAITING. Agents
// may only escalate to supervisor rank or above; nobody escalates to
// themselves.
func (s *LifecycleService) Escalate(ctx context.Context, actor *domain.User, ticketID, targetID, reason string) (*domain.Ticket, error) {
	if err := s.guard.RequireRank(actor, domain.RoleAgent); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if targetID == actor.ID {
		return nil, apperrors.NewForbidden("cannot escalate a ticket to yourself")
	}
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !target.Active {
		return nil, apperrors.NewConflict("escalation target is deactivated", map[string]any{"user_id": targetID})
	}
	if target.Rank() < domain.RoleAgent.Rank() {
		return nil, apperrors.NewForbidden("escalation target must be staff")
	}
	if actor.Rank() == domain.RoleAgent.Rank() && target.Rank() < domain.RoleSupervisor.Rank() {
		return nil, apperrors.NewForbidden("agents may only escalate to supervisor or admin")
	}

	next := *ticket
	fromStatus := next.Status
	next.EscalatedToID = &target.ID
	next.Status = domain.TicketStatusWaiting
	next.LastUpdatedByID = &actor.ID

	if err := s.saveTicket(ctx, &next); err != nil {
		return nil, err
	}

	content := fmt.Sprintf("Ticket escalated to %s", target.Username)
	if strings.TrimSpace(reason) != "" {
		content += ": " + strings.TrimSpace(reason)
	}
	if err := s.appendSystemComment(ctx, next.ID, actor.ID, content, true); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, actor, &next, "escalate", fromStatus)
	return &next, nil
}

// Resolve records the resolution and moves the ticket to the requested
// terminal status (RESOLVED unless CLOSED is asked for). Allowed for the
// assignee or supervisor rank and above.
func (s *LifecycleService) Resolve(ctx context.Context, actor *domain.User, ticketID, resolution string, target domain.TicketStatus) (*domain.Ticket, error) {
	if err := s.guard.RequireActive(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	isAssignee := ticket.AssignedToID != nil && *ticket.AssignedToID == actor.ID
	if !isAssignee && !s.guard.HasRank(actor, domain.RoleSupervisor) {
		return nil, apperrors.NewForbidden("only the assignee or a supervisor can resolve this ticket")
	}

	resolution = strings.TrimSpace(resolution)
	if len(resolution) < minResolutionLength {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("resolution must be at least %d characters", minResolutionLength), nil)
	}
	if target == "" {
		target = domain.TicketStatusResolved
	}
	if !target.IsTerminal() {
		return nil, apperrors.NewValidationError("resolve target must be RESOLVED or CLOSED",
			map[string]any{"status": target})
	}

	next := *ticket
	fromStatus := next.Status
	next.Resolution = &resolution
	next.Status = target
	next.LastUpdatedByID = &actor.ID

	if err := s.saveTicket(ctx, &next); err != nil {
		return nil, err
	}
	if err := s.appendSystemComment(ctx, next.ID, actor.ID, "Ticket resolved: "+resolution, false); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, actor, &next, "resolve", fromStatus)
	return &next, nil
}

// Close finalizes a RESOLVED ticket. Closing from any other state, including
// an already CLOSED ticket, is an invalid-state rejection, never a no-op.
func (s *LifecycleService) Close(ctx context.Context, actor *domain.User, ticketID string, note *string) (*domain.Ticket, error) {
	if err := s.guard.RequireRank(actor, domain.RoleSupervisor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewInvalidState("only a resolved ticket can be closed",
			map[string]any{"status": ticket.Status})
	}

	next := *ticket
	fromStatus := next.Status
	next.Status = domain.TicketStatusClosed
	next.LastUpdatedByID = &actor.ID

	if err := s.saveTicket(ctx, &next); err != nil {
		return nil, err
	}
	if note != nil && strings.TrimSpace(*note) != "" {
		if err := s.appendSystemComment(ctx, next.ID, actor.ID, "Closing note: "+strings.TrimSpace(*note), true); err != nil {
			return nil, err
		}
	}
	s.publishTransition(ctx, actor, &next, "close", fromStatus)
	return &next, nil
}

// Reopen pulls a RESOLVED or CLOSED ticket back to IN_PROGRESS, clearing the
// resolution and any pending escalation.
func (s *LifecycleService) Reopen(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := s.guard.RequireRank(actor, domain.RoleAgent); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.IsTerminal() {
		return nil, apperrors.NewInvalidState("only a resolved or closed ticket can be reopened",
			map[string]any{"status": ticket.Status})
	}

	next := *ticket
	fromStatus := next.Status
	next.Status = domain.TicketStatusInProgress
	next.Resolution = nil
	next.EscalatedToID = nil
	next.LastUpdatedByID = &actor.ID

	if err := s.saveTicket(ctx, &next); err != nil {
		return nil, err
	}
	if err := s.appendSystemComment(ctx, next.ID, actor.ID, "Ticket reopened", true); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, actor, &next, "reopen", fromStatus)
	return &next, nil
}

// Delete removes a ticket and its comment trail. Admin only.
func (s *LifecycleService) Delete(ctx context.Context, actor *domain.User, ticketID string) error {
	if err := s.guard.RequirePermission(actor, authz.PermTicketsDeleteAny); err != nil {
		return err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketDeletedPayload{Title: ticket.Title},
	})
	return nil
}

// AddAttachment records attachment metadata for a ticket the actor may
// update.
func (s *LifecycleService) AddAttachment(ctx context.Context, actor *domain.User, ticketID string, attachment *domain.Attachment) error {
	if err := s.guard.RequireActive(actor); err != nil {
		return err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !s.canUpdate(actor, ticket) {
		return apperrors.NewForbidden("no permission to update this ticket")
	}
	attachment.TicketID = ticket.ID
	attachment.UploadedBy = actor.ID
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *LifecycleService) canView(actor *domain.User, ticket *domain.Ticket) bool {
	if actor.IsStaff() {
		return true
	}
	return ticket.CreatedByID == actor.ID
}

func (s *LifecycleService) canUpdate(actor *domain.User, ticket *domain.Ticket) bool {
	switch {
	case s.guard.HasRank(actor, domain.RoleSupervisor):
		return true
	case s.guard.HasRank(actor, domain.RoleAgent):
		return ticket.CreatedByID == actor.ID ||
			(ticket.AssignedToID != nil && *ticket.AssignedToID == actor.ID)
	default:
		return ticket.CreatedByID == actor.ID
	}
}

func firstDisallowedCustomerField(input TicketUpdateInput) (string, bool) {
	if input.Status != nil {
		return "status", true
	}
	if input.Priority != nil {
		return "priority", true
	}
	if input.Category != nil {
		return "category", true
	}
	return "", false
}

func (s *LifecycleService) loadTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *LifecycleService) loadUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *LifecycleService) saveTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConflict("ticket was modified concurrently; retry",
				map[string]any{"ticket_id": ticket.ID})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *LifecycleService) appendSystemComment(ctx context.Context, ticketID, actorID, content string, internal bool) error {
	comment := &domain.Comment{
		TicketID:   ticketID,
		AuthorID:   actorID,
		Kind:       domain.CommentKindSystem,
		Content:    content,
		IsInternal: internal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *LifecycleService) publishTransition(ctx context.Context, actor *domain.User, ticket *domain.Ticket, transition string, fromStatus domain.TicketStatus) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketTransitioned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketTransitionedPayload{
			Transition: transition,
			FromStatus: fromStatus,
			ToStatus:   ticket.Status,
		},
	})
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *LifecycleService) repoFilter(filter TicketListFilter) repository.TicketFilter {
	return repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		Categories:  filter.Categories,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
}
