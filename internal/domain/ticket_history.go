package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated     TicketChangeType = "CREATED"
	ChangeTypeStatus      TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee    TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority    TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeServiceType TicketChangeType = "SERVICE_TYPE_CHANGE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          int64
	TicketID    int64
	ChangedByID int64
	ChangeType  TicketChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
