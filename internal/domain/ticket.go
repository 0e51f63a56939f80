package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusWaiting    TicketStatus = "WAITING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketCategory classifies the reported issue.
type TicketCategory string

const (
	TicketCategoryHardware TicketCategory = "HARDWARE"
	TicketCategorySoftware TicketCategory = "SOFTWARE"
	TicketCategoryNetwork  TicketCategory = "NETWORK"
	TicketCategoryAccess   TicketCategory = "ACCESS"
	TicketCategoryOther    TicketCategory = "OTHER"
)

// Ticket is the aggregate for support requests. Status, AssignedToID,
// EscalatedToID and Resolution are written only by lifecycle transitions;
// Version backs the optimistic write check on every save.
type Ticket struct {
	ID              string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	Category        TicketCategory
	CreatedByID     string
	AssignedToID    *string
	EscalatedToID   *string
	LastUpdatedByID *string
	Resolution      *string
	Attachments     []Attachment
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsTerminal reports whether the status permits no forward transition other
// than reopen.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}
