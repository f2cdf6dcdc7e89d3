package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NullableInt64 tells an absent JSON field apart from an explicit null.
type NullableInt64 struct {
	Set   bool
	Value *int64
}

// UnmarshalJSON marks the field as present and keeps nil for null.
func (n *NullableInt64) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// UpdateTicketRequest payload. Omitted fields are left unchanged.
type UpdateTicketRequest struct {
	Title         *string                `json:"title"`
	Description   *string                `json:"description"`
	Priority      *domain.TicketPriority `json:"priority"`
	Status        *domain.TicketStatus   `json:"status"`
	ServiceTypeID *int64                 `json:"service_type_id"`
	AssignedTo    NullableInt64          `json:"assigned_to"`
}

// AssignTicketRequest payload. A null assignee clears the assignment.
type AssignTicketRequest struct {
	AssignedTo *int64 `json:"assigned_to"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Message string `json:"message"`
}

// CreateResponseRequest payload.
type CreateResponseRequest struct {
	Message    string `json:"message"`
	IsInternal bool   `json:"is_internal"`
}

// TicketResponse is the full serialized ticket.
type TicketResponse struct {
	ID             int64                 `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	ServiceTypeID  int64                 `json:"service_type_id"`
	ServiceType    string                `json:"service_type"`
	CompanyID      int64                 `json:"company_id"`
	CompanyName    string                `json:"company_name"`
	CreatedBy      int64                 `json:"created_by"`
	CreatedByName  string                `json:"created_by_name"`
	AssignedTo     *int64                `json:"assigned_to"`
	AssignedToName *string               `json:"assigned_to_name"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	ClosedAt       *time.Time            `json:"closed_at"`
	Files          []FileResponse        `json:"files"`
}

// FileResponse is attachment metadata. The storage location is never exposed.
type FileResponse struct {
	ID           int64     `json:"id"`
	TicketID     int64     `json:"ticket_id"`
	OriginalName string    `json:"original_name"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	UploadedBy   int64     `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
	DownloadURL  string    `json:"download_url"`
}

// ResponseResponse is one entry of a ticket thread.
type ResponseResponse struct {
	ID         int64       `json:"id"`
	TicketID   int64       `json:"ticket_id"`
	AuthorID   int64       `json:"author_id"`
	AuthorName string      `json:"author_name"`
	AuthorRole domain.Role `json:"author_role"`
	Message    string      `json:"message"`
	IsInternal bool        `json:"is_internal"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID          int64                   `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID int64                   `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// TicketStatsResponse counts visible tickets.
type TicketStatsResponse struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"aberto"`
	InProgress int64 `json:"em_andamento"`
	Closed     int64 `json:"fechado"`
}
