package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints shared by every role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets. Accepts multipart form data with repeated
// "files" parts, or a JSON body without files.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	input, err := parseCreateTicket(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), user, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	tickets, err := h.service.List(c.UserContext(), user, opts)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Update(c.UserContext(), user, id, service.TicketPatch{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		Status:        req.Status,
		ServiceTypeID: req.ServiceTypeID,
		AssignedTo:    service.NullableID{Set: req.AssignedTo.Set, Value: req.AssignedTo.Value},
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), user, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketStatsResponse{
		Total:      stats.Total,
		Open:       stats.Open,
		InProgress: stats.InProgress,
		Closed:     stats.Closed,
	}})
}

// AddResponse POST /tickets/:id/responses.
func (h *TicketsHandler) AddResponse(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	response, err := h.service.AddResponse(c.UserContext(), user, id, req.Message, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": responseResponse(response)})
}

// ListResponses GET /tickets/:id/responses.
func (h *TicketsHandler) ListResponses(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	responses, err := h.service.ListResponses(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	items := make([]dto.ResponseResponse, 0, len(responses))
	for i := range responses {
		items = append(items, responseResponse(&responses[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

func parseCreateTicket(c *fiber.Ctx) (service.TicketCreateInput, error) {
	var input service.TicketCreateInput
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var req struct {
			Title         string                `json:"title"`
			Description   string                `json:"description"`
			ServiceTypeID int64                 `json:"service_type_id"`
			Priority      domain.TicketPriority `json:"priority"`
			CompanyID     *int64                `json:"company_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return input, apperrors.NewValidationError("invalid payload", nil)
		}
		input.Title = req.Title
		input.Description = req.Description
		input.ServiceTypeID = req.ServiceTypeID
		input.Priority = req.Priority
		input.CompanyID = req.CompanyID
		return input, nil
	}

	input.Title = c.FormValue("title")
	input.Description = c.FormValue("description")
	input.Priority = domain.TicketPriority(strings.TrimSpace(c.FormValue("priority")))
	serviceTypeID, err := parseOptionalInt64("service_type_id", c.FormValue("service_type_id"))
	if err != nil {
		return input, err
	}
	if serviceTypeID != nil {
		input.ServiceTypeID = *serviceTypeID
	}
	if input.CompanyID, err = parseOptionalInt64("company_id", c.FormValue("company_id")); err != nil {
		return input, err
	}
	if form, err := c.MultipartForm(); err == nil {
		input.Files = fileUploads(form.File["files"])
	}
	return input, nil
}

func parseListOptions(c *fiber.Ctx) service.ListOptions {
	opts := service.ListOptions{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			opts.Statuses = append(opts.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if pageSize := parseInt(c.Query("page_size"), 0); pageSize > 0 {
		page := parseInt(c.Query("page"), 1)
		opts.Limit = pageSize
		opts.Offset = (page - 1) * pageSize
	}
	return opts
}

func fileUploads(headers []*multipart.FileHeader) []service.FileUpload {
	uploads := make([]service.FileUpload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, service.FileUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}
