package domain

import "time"

// TicketResponse is a comment on a ticket thread. Internal responses are staff-only notes.
type TicketResponse struct {
	ID         int64
	TicketID   int64
	AuthorID   int64
	Message    string
	IsInternal bool
	CreatedAt  time.Time
}

// ResponseDetails carries the author's display name.
type ResponseDetails struct {
	TicketResponse
	AuthorName string
	AuthorRole Role
}
