package domain

import "time"

// TicketComment captures a reply appended to an existing ticket.
type TicketComment struct {
	ID          string
	TicketID    string
	AuthorEmail string
	Body        string
	Source      TicketSource
	Attachments []AttachmentSummary
	CreatedAt   time.Time
}

// AttachmentSummary stores attachment metadata only; content is not persisted by the core.
type AttachmentSummary struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}
