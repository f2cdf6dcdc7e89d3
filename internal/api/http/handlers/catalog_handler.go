package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CatalogHandler lists reference data.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalogService}
}

// ListServiceTypes GET /service-types.
func (h *CatalogHandler) ListServiceTypes(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	types, err := h.catalog.ListServiceTypes(c.UserContext(), user)
	if err != nil {
		return err
	}
	items := make([]dto.ServiceTypeResponse, 0, len(types))
	for _, st := range types {
		items = append(items, dto.ServiceTypeResponse{ID: st.ID, Name: st.Name, Description: st.Description})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListCompanies GET /companies.
func (h *CatalogHandler) ListCompanies(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	companies, err := h.catalog.ListCompanies(c.UserContext(), user)
	if err != nil {
		return err
	}
	items := make([]dto.CompanyResponse, 0, len(companies))
	for _, co := range companies {
		items = append(items, dto.CompanyResponse{
			ID:      co.ID,
			Name:    co.Name,
			Email:   co.Email,
			Phone:   co.Phone,
			Address: co.Address,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
