package domain

import "time"

// CommentKind differentiates human comments from transition notices the
// lifecycle engine appends.
type CommentKind string

const (
	CommentKindUser   CommentKind = "USER"
	CommentKindSystem CommentKind = "SYSTEM"
)

// Comment is an append-only trail entry on a ticket. Internal comments are
// visible to staff ranks only. Comments are never edited or deleted except
// by cascade when their ticket is deleted.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	Kind       CommentKind
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
