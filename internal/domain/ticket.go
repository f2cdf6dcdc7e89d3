package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "aberto"
	TicketStatusInProgress TicketStatus = "em_andamento"
	TicketStatusClosed     TicketStatus = "fechado"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "baixa"
	TicketPriorityMedium TicketPriority = "media"
	TicketPriorityHigh   TicketPriority = "alta"
	TicketPriorityUrgent TicketPriority = "urgente"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate root for support requests. It owns responses and files.
type Ticket struct {
	ID            int64
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	ServiceTypeID int64
	CompanyID     int64
	CreatedBy     int64
	AssignedTo    *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
}

// IsClosed reports whether the ticket reached the terminal state.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// TicketDetails is the read model returned to clients, with display names resolved.
type TicketDetails struct {
	Ticket
	ServiceTypeName string
	CompanyName     string
	CreatorName     string
	AssigneeName    *string
	Files           []TicketFile
}

// TicketStats counts visible tickets by status.
type TicketStats struct {
	Total      int64
	Open       int64
	InProgress int64
	Closed     int64
}
