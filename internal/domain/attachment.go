package domain

import "time"

// Attachment stores metadata for a file attached to a ticket. Blob storage
// is handled elsewhere; only the descriptor lives here.
type Attachment struct {
	ID         string
	TicketID   string
	UploadedBy string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
