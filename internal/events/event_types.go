package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAny                 EventType = "*"
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketResponseAdded EventType = "ticket_response_added"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTicketFilesUploaded EventType = "ticket_files_uploaded"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title         string                `json:"title"`
	Priority      domain.TicketPriority `json:"priority"`
	ServiceTypeID int64                 `json:"service_type_id"`
	CompanyID     int64                 `json:"company_id"`
	FileCount     int                   `json:"file_count"`
}

// TicketUpdatedPayload lists the fields that changed.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAssignee *int64 `json:"old_assignee,omitempty"`
	NewAssignee *int64 `json:"new_assignee,omitempty"`
}

// TicketResponseAddedPayload payload.
type TicketResponseAddedPayload struct {
	ResponseID  int64  `json:"response_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Message string `json:"message,omitempty"`
}

// TicketFilesUploadedPayload payload.
type TicketFilesUploadedPayload struct {
	FileIDs []int64 `json:"file_ids"`
}
