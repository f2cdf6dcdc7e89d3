package handlers

import (
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func ticketResponse(ticket *domain.TicketDetails) dto.TicketResponse {
	files := make([]dto.FileResponse, 0, len(ticket.Files))
	for i := range ticket.Files {
		files = append(files, fileResponse(&ticket.Files[i]))
	}
	return dto.TicketResponse{
		ID:             ticket.ID,
		Title:          ticket.Title,
		Description:    ticket.Description,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		ServiceTypeID:  ticket.ServiceTypeID,
		ServiceType:    ticket.ServiceTypeName,
		CompanyID:      ticket.CompanyID,
		CompanyName:    ticket.CompanyName,
		CreatedBy:      ticket.CreatedBy,
		CreatedByName:  ticket.CreatorName,
		AssignedTo:     ticket.AssignedTo,
		AssignedToName: ticket.AssigneeName,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
		ClosedAt:       ticket.ClosedAt,
		Files:          files,
	}
}

func fileResponse(file *domain.TicketFile) dto.FileResponse {
	return dto.FileResponse{
		ID:           file.ID,
		TicketID:     file.TicketID,
		OriginalName: file.OriginalName,
		SizeBytes:    file.SizeBytes,
		ContentType:  file.ContentType,
		UploadedBy:   file.UploadedBy,
		UploadedAt:   file.UploadedAt,
		DownloadURL:  fmt.Sprintf("/api/tickets/%d/files/%d", file.TicketID, file.ID),
	}
}

func responseResponse(r *domain.ResponseDetails) dto.ResponseResponse {
	return dto.ResponseResponse{
		ID:         r.ID,
		TicketID:   r.TicketID,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		AuthorRole: r.AuthorRole,
		Message:    r.Message,
		IsInternal: r.IsInternal,
		CreatedAt:  r.CreatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:                   user.ID,
		Name:                 user.Name,
		Email:                user.Email,
		Role:                 user.Role,
		CompanyID:            user.CompanyID,
		IsCompanyResponsible: user.IsCompanyResponsible,
	}
}
