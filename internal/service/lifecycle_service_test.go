package service

import (
	"context"
	"strings"
	"testing"

	"github.com/techmax/helpdesk-service/internal/authz"
	"github.com/techmax/helpdesk-service/internal/domain"
	"github.com/techmax/helpdesk-service/internal/events"
	"github.com/techmax/helpdesk-service/internal/repository"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

type lifecycleFixture struct {
	svc        *LifecycleService
	tickets    *fakeTicketRepo
	comments   *fakeCommentRepo
	users      *fakeUserRepo
	dispatcher *captureDispatcher

	customer   *domain.User
	customer2  *domain.User
	agent      *domain.User
	agent2     *domain.User
	supervisor *domain.User
	admin      *domain.User
	inactive   *domain.User
}

func makeUser(id string, role domain.RoleName, active bool) *domain.User {
	return &domain.User{
		ID:       id,
		Username: id,
		Email:    id + "@techmax.com",
		Active:   active,
		Status:   domain.UserStatusActive,
		Role:     &domain.Role{ID: "role-" + string(role), Name: role},
	}
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		tickets:    newFakeTicketRepo(),
		comments:   newFakeCommentRepo(),
		users:      newFakeUserRepo(),
		dispatcher: &captureDispatcher{},
	}
	f.customer = makeUser("customer-1", domain.RoleCustomer, true)
	f.customer2 = makeUser("customer-2", domain.RoleCustomer, true)
	f.agent = makeUser("agent-1", domain.RoleAgent, true)
	f.agent2 = makeUser("agent-2", domain.RoleAgent, true)
	f.supervisor = makeUser("supervisor-1", domain.RoleSupervisor, true)
	f.admin = makeUser("admin-1", domain.RoleAdmin, true)
	f.inactive = makeUser("inactive-1", domain.RoleAgent, false)
	for _, user := range []*domain.User{f.customer, f.customer2, f.agent, f.agent2, f.supervisor, f.admin, f.inactive} {
		f.users.add(user)
	}

	f.svc = NewLifecycleService(LifecycleDependencies{
		TicketRepo:     f.tickets,
		CommentRepo:    f.comments,
		AttachmentRepo: newFakeAttachmentRepo(),
		UserRepo:       f.users,
		Guard:          authz.NewGuard(authz.NewDefaultRegistry()),
		Dispatcher:     f.dispatcher,
	})
	return f
}

func (f *lifecycleFixture) createTicket(t *testing.T, creator *domain.User) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), creator, TicketCreateInput{
		Title:       "Printer offline",
		Description: "Third floor printer does not respond",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return ticket
}

func TestCreateTicketDefaults(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("Status = %q, want OPEN", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("Priority = %q, want MEDIUM", ticket.Priority)
	}
	if ticket.Category != domain.TicketCategoryOther {
		t.Errorf("Category = %q, want OTHER", ticket.Category)
	}
	if ticket.CreatedByID != f.customer.ID {
		t.Errorf("CreatedByID = %q, want %q", ticket.CreatedByID, f.customer.ID)
	}
	if ticket.Version != 1 {
		t.Errorf("Version = %d, want 1", ticket.Version)
	}
	if got := len(f.dispatcher.byType(events.EventTicketCreated)); got != 1 {
		t.Errorf("ticket_created events = %d, want 1", got)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newLifecycleFixture()
	_, err := f.svc.Create(context.Background(), f.customer, TicketCreateInput{Title: "  ", Description: "x"})
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("Create(blank title) = %v, want VALIDATION_FAILED", err)
	}
	_, err = f.svc.Create(context.Background(), f.inactive, TicketCreateInput{Title: "a", Description: "b"})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Create(inactive) = %v, want FORBIDDEN", err)
	}
	_, err = f.svc.Create(context.Background(), nil, TicketCreateInput{Title: "a", Description: "b"})
	if !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Errorf("Create(nil actor) = %v, want UNAUTHENTICATED", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	if _, err := f.svc.Get(context.Background(), f.customer, ticket.ID); err != nil {
		t.Errorf("Get(owner) error = %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.agent, ticket.ID); err != nil {
		t.Errorf("Get(staff) error = %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.customer2, ticket.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Get(other customer) = %v, want FORBIDDEN", err)
	}
	if _, err := f.svc.Get(context.Background(), f.agent, "missing"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("Get(missing) = %v, want NOT_FOUND", err)
	}
}

func TestListScopesCustomersToOwnTickets(t *testing.T) {
	f := newLifecycleFixture()
	f.createTicket(t, f.customer)
	f.createTicket(t, f.customer2)

	mine, err := f.svc.List(context.Background(), f.customer, TicketListFilter{})
	if err != nil {
		t.Fatalf("List(customer) error = %v", err)
	}
	if len(mine) != 1 || mine[0].CreatedByID != f.customer.ID {
		t.Errorf("List(customer) = %d tickets, want only own", len(mine))
	}

	all, err := f.svc.List(context.Background(), f.supervisor, TicketListFilter{})
	if err != nil {
		t.Fatalf("List(supervisor) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(supervisor) = %d tickets, want 2", len(all))
	}
}

func TestUpdateFieldsAuthorization(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)
	newTitle := "Printer still offline"

	// Unrelated agent is rejected before field-level checks run.
	status := domain.TicketStatusResolved
	_, err := f.svc.UpdateFields(context.Background(), f.agent, ticket.ID, TicketUpdateInput{Status: &status})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("UpdateFields(unassigned agent) = %v, want FORBIDDEN", err)
	}

	// Supervisor may update any ticket.
	updated, err := f.svc.UpdateFields(context.Background(), f.supervisor, ticket.ID, TicketUpdateInput{Title: &newTitle})
	if err != nil {
		t.Fatalf("UpdateFields(supervisor) error = %v", err)
	}
	if updated.Title != newTitle {
		t.Errorf("Title = %q, want %q", updated.Title, newTitle)
	}

	// Creator customer may change title and description only.
	desc := "It shows error E12 now"
	if _, err := f.svc.UpdateFields(context.Background(), f.customer, ticket.ID, TicketUpdateInput{Description: &desc}); err != nil {
		t.Errorf("UpdateFields(customer description) error = %v", err)
	}

	// Other customers have no access at all.
	if _, err := f.svc.UpdateFields(context.Background(), f.customer2, ticket.ID, TicketUpdateInput{Title: &newTitle}); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("UpdateFields(other customer) = %v, want FORBIDDEN", err)
	}
}

func TestUpdateFieldsCustomerRestrictedFields(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	priority := domain.TicketPriorityHigh
	_, err := f.svc.UpdateFields(context.Background(), f.customer, ticket.ID, TicketUpdateInput{Priority: &priority})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("UpdateFields(customer priority) = %v, want FORBIDDEN", err)
	}
	var domainErr *apperrors.DomainError
	if !asDomainError(err, &domainErr) || domainErr.Details["field"] != "priority" {
		t.Errorf("error should name the offending field, got %v", err)
	}

	// Staff may change priority but cannot route status through a field
	// update.
	if _, err := f.svc.UpdateFields(context.Background(), f.supervisor, ticket.ID, TicketUpdateInput{Priority: &priority}); err != nil {
		t.Errorf("UpdateFields(supervisor priority) error = %v", err)
	}
	status := domain.TicketStatusClosed
	if _, err := f.svc.UpdateFields(context.Background(), f.supervisor, ticket.ID, TicketUpdateInput{Status: &status}); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("UpdateFields(supervisor status) = %v, want VALIDATION_FAILED", err)
	}
}

func TestAssignTransitions(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	if _, err := f.svc.Assign(context.Background(), f.agent, ticket.ID, f.agent2.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Assign(agent) = %v, want FORBIDDEN", err)
	}

	assigned, err := f.svc.Assign(context.Background(), f.supervisor, ticket.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("Assign(supervisor) error = %v", err)
	}
	if assigned.Status != domain.TicketStatusInProgress {
		t.Errorf("Status = %q, want IN_PROGRESS", assigned.Status)
	}
	if assigned.AssignedToID == nil || *assigned.AssignedToID != f.agent.ID {
		t.Errorf("AssignedToID = %v, want %q", assigned.AssignedToID, f.agent.ID)
	}

	if _, err := f.svc.Assign(context.Background(), f.supervisor, ticket.ID, f.inactive.ID); !apperrors.IsCode(err, "CONFLICT") {
		t.Errorf("Assign(inactive assignee) = %v, want CONFLICT", err)
	}
	if _, err := f.svc.Assign(context.Background(), f.supervisor, ticket.ID, "missing"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("Assign(missing assignee) = %v, want NOT_FOUND", err)
	}
}

func TestEscalateRules(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	if _, err := f.svc.Escalate(context.Background(), f.customer, ticket.ID, f.supervisor.ID, ""); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Escalate(customer) = %v, want FORBIDDEN", err)
	}
	if _, err := f.svc.Escalate(context.Background(), f.agent, ticket.ID, f.agent.ID, ""); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Escalate(self) = %v, want FORBIDDEN", err)
	}
	// Agents cannot escalate sideways to another agent.
	if _, err := f.svc.Escalate(context.Background(), f.agent, ticket.ID, f.agent2.ID, ""); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Escalate(agent to agent) = %v, want FORBIDDEN", err)
	}
	if _, err := f.svc.Escalate(context.Background(), f.agent, ticket.ID, f.customer2.ID, ""); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Escalate(to customer) = %v, want FORBIDDEN", err)
	}

	escalated, err := f.svc.Escalate(context.Background(), f.agent, ticket.ID, f.supervisor.ID, "needs approval")
	if err != nil {
		t.Fatalf("Escalate(agent to supervisor) error = %v", err)
	}
	if escalated.Status != domain.TicketStatusWaiting {
		t.Errorf("Status = %q, want WAITING", escalated.Status)
	}
	if escalated.EscalatedToID == nil || *escalated.EscalatedToID != f.supervisor.ID {
		t.Errorf("EscalatedToID = %v, want %q", escalated.EscalatedToID, f.supervisor.ID)
	}

	comments, _ := f.comments.ListByTicket(context.Background(), ticket.ID)
	if len(comments) != 1 {
		t.Fatalf("comments = %d, want 1 system comment", len(comments))
	}
	if comments[0].Kind != domain.CommentKindSystem || !comments[0].IsInternal {
		t.Errorf("escalation comment should be internal system kind, got %+v", comments[0])
	}
	if !strings.Contains(comments[0].Content, f.supervisor.Username) || !strings.Contains(comments[0].Content, "needs approval") {
		t.Errorf("escalation comment = %q, want target and reason", comments[0].Content)
	}
}

func TestResolveRules(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)
	if _, err := f.svc.Assign(context.Background(), f.supervisor, ticket.ID, f.agent.ID); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	if _, err := f.svc.Resolve(context.Background(), f.agent2, ticket.ID, "replaced the cable", ""); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Resolve(non-assignee agent) = %v, want FORBIDDEN", err)
	}
	if _, err := f.svc.Resolve(context.Background(), f.agent, ticket.ID, "ok", ""); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("Resolve(short resolution) = %v, want VALIDATION_FAILED", err)
	}
	if _, err := f.svc.Resolve(context.Background(), f.agent, ticket.ID, "replaced the cable", domain.TicketStatusOpen); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("Resolve(non-terminal target) = %v, want VALIDATION_FAILED", err)
	}

	resolved, err := f.svc.Resolve(context.Background(), f.agent, ticket.ID, "replaced the cable", "")
	if err != nil {
		t.Fatalf("Resolve(assignee) error = %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved {
		t.Errorf("Status = %q, want RESOLVED", resolved.Status)
	}
	if resolved.Resolution == nil || *resolved.Resolution != "replaced the cable" {
		t.Errorf("Resolution = %v, want set", resolved.Resolution)
	}
}

func TestResolveBySupervisorStraightToClosed(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	resolved, err := f.svc.Resolve(context.Background(), f.supervisor, ticket.ID, "duplicate of another ticket", domain.TicketStatusClosed)
	if err != nil {
		t.Fatalf("Resolve(supervisor to CLOSED) error = %v", err)
	}
	if resolved.Status != domain.TicketStatusClosed {
		t.Errorf("Status = %q, want CLOSED", resolved.Status)
	}
}

func TestCloseRules(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	if _, err := f.svc.Close(context.Background(), f.supervisor, ticket.ID, nil); !apperrors.IsCode(err, "INVALID_STATE") {
		t.Errorf("Close(OPEN) = %v, want INVALID_STATE", err)
	}

	if _, err := f.svc.Resolve(context.Background(), f.supervisor, ticket.ID, "rebuilt the queue", ""); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, err := f.svc.Close(context.Background(), f.agent, ticket.ID, nil); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Close(agent) = %v, want FORBIDDEN", err)
	}

	closed, err := f.svc.Close(context.Background(), f.supervisor, ticket.ID, nil)
	if err != nil {
		t.Fatalf("Close(supervisor) error = %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Errorf("Status = %q, want CLOSED", closed.Status)
	}

	// Closing an already closed ticket is a state violation, never a no-op.
	if _, err := f.svc.Close(context.Background(), f.supervisor, ticket.ID, nil); !apperrors.IsCode(err, "INVALID_STATE") {
		t.Errorf("Close(CLOSED) = %v, want INVALID_STATE", err)
	}
}

func TestReopenRules(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	if _, err := f.svc.Reopen(context.Background(), f.agent, ticket.ID); !apperrors.IsCode(err, "INVALID_STATE") {
		t.Errorf("Reopen(OPEN) = %v, want INVALID_STATE", err)
	}
	if _, err := f.svc.Resolve(context.Background(), f.supervisor, ticket.ID, "cleared the jam", ""); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := f.svc.Reopen(context.Background(), f.customer, ticket.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Reopen(customer) = %v, want FORBIDDEN", err)
	}

	reopened, err := f.svc.Reopen(context.Background(), f.agent, ticket.ID)
	if err != nil {
		t.Fatalf("Reopen(agent) error = %v", err)
	}
	if reopened.Status != domain.TicketStatusInProgress {
		t.Errorf("Status = %q, want IN_PROGRESS", reopened.Status)
	}
	if reopened.Resolution != nil {
		t.Errorf("Resolution = %v, want cleared", reopened.Resolution)
	}
	if reopened.EscalatedToID != nil {
		t.Errorf("EscalatedToID = %v, want cleared", reopened.EscalatedToID)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	if err := f.svc.Delete(context.Background(), f.supervisor, ticket.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("Delete(supervisor) = %v, want FORBIDDEN", err)
	}
	if err := f.svc.Delete(context.Background(), f.admin, ticket.ID); err != nil {
		t.Fatalf("Delete(admin) error = %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.admin, ticket.ID); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Errorf("Get(deleted) = %v, want NOT_FOUND", err)
	}
	if got := len(f.dispatcher.byType(events.EventTicketDeleted)); got != 1 {
		t.Errorf("ticket_deleted events = %d, want 1", got)
	}
}

func TestLifecycleRoundTrip(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	if _, err := f.svc.Assign(context.Background(), f.supervisor, ticket.ID, f.agent.ID); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if _, err := f.svc.Escalate(context.Background(), f.agent, ticket.ID, f.supervisor.ID, "blocked on licensing"); err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}
	if _, err := f.svc.Resolve(context.Background(), f.supervisor, ticket.ID, "license renewed", ""); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := f.svc.Reopen(context.Background(), f.agent, ticket.ID); err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if _, err := f.svc.Resolve(context.Background(), f.agent, ticket.ID, "verified with the reporter", ""); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	final, err := f.svc.Close(context.Background(), f.supervisor, ticket.ID, nil)
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if final.Status != domain.TicketStatusClosed {
		t.Errorf("final Status = %q, want CLOSED", final.Status)
	}
	if final.Resolution == nil || *final.Resolution != "verified with the reporter" {
		t.Errorf("final Resolution = %v, want latest resolution", final.Resolution)
	}

	// Every transition is published.
	transitions := f.dispatcher.byType(events.EventTicketTransitioned)
	if len(transitions) != 6 {
		t.Errorf("transition events = %d, want 6", len(transitions))
	}
}

// conflictingTicketRepo simulates a concurrent writer winning every version
// check.
type conflictingTicketRepo struct {
	*fakeTicketRepo
}

func (r *conflictingTicketRepo) Update(_ context.Context, _ *domain.Ticket) error {
	return repository.ErrVersionConflict
}

func TestStaleWriteSurfacesAsConflict(t *testing.T) {
	f := newLifecycleFixture()
	ticket := f.createTicket(t, f.customer)

	f.svc.tickets = &conflictingTicketRepo{fakeTicketRepo: f.tickets}

	title := "renamed"
	if _, err := f.svc.UpdateFields(context.Background(), f.supervisor, ticket.ID, TicketUpdateInput{Title: &title}); !apperrors.IsCode(err, "CONFLICT") {
		t.Errorf("UpdateFields(stale) = %v, want CONFLICT", err)
	}
	if _, err := f.svc.Assign(context.Background(), f.supervisor, ticket.ID, f.agent.ID); !apperrors.IsCode(err, "CONFLICT") {
		t.Errorf("Assign(stale) = %v, want CONFLICT", err)
	}
}

func asDomainError(err error, target **apperrors.DomainError) bool {
	de, ok := err.(*apperrors.DomainError)
	if !ok {
		return false
	}
	*target = de
	return true
}
