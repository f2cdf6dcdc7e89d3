package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketFilesHandler serves ticket attachments.
type TicketFilesHandler struct {
	files *service.AttachmentService
}

// NewTicketFilesHandler constructs handler.
func NewTicketFilesHandler(attachmentService *service.AttachmentService) *TicketFilesHandler {
	return &TicketFilesHandler{files: attachmentService}
}

// Upload POST /tickets/:id/files.
func (h *TicketFilesHandler) Upload(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("multipart form with files expected", nil)
	}
	stored, err := h.files.Upload(c.UserContext(), user, id, fileUploads(form.File["files"]))
	if err != nil {
		return err
	}
	items := make([]dto.FileResponse, 0, len(stored))
	for i := range stored {
		items = append(items, fileResponse(&stored[i]))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": items})
}

// Download GET /tickets/:id/files/:fileId.
func (h *TicketFilesHandler) Download(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	fileID, err := paramID(c, "fileId")
	if err != nil {
		return err
	}
	file, body, err := h.files.Download(c.UserContext(), user, ticketID, fileID)
	if err != nil {
		return err
	}
	c.Attachment(file.OriginalName)
	c.Set(fiber.HeaderContentType, file.ContentType)
	// fasthttp closes the stream once the body is written.
	return c.SendStream(body, int(file.SizeBytes))
}

// Delete DELETE /tickets/:id/files/:fileId.
func (h *TicketFilesHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	fileID, err := paramID(c, "fileId")
	if err != nil {
		return err
	}
	if err := h.files.Delete(c.UserContext(), user, ticketID, fileID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
