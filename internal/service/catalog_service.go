package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// CatalogService exposes the reference data tickets point at.
type CatalogService struct {
	store repository.Store
}

// NewCatalogService creates the service.
func NewCatalogService(store repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

// ListServiceTypes returns active service types to any authenticated user.
func (s *CatalogService) ListServiceTypes(ctx context.Context, actor *domain.User) ([]domain.ServiceType, error) {
	if _, err := permissionsFor(actor); err != nil {
		return nil, err
	}
	types, err := s.store.Repositories().ServiceTypes.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return types, nil
}

// ListCompanies returns active companies. Staff only, since they pick the
// company when filing on a client's behalf.
func (s *CatalogService) ListCompanies(ctx context.Context, actor *domain.User) ([]domain.Company, error) {
	if _, err := requireStaff(actor); err != nil {
		return nil, err
	}
	companies, err := s.store.Repositories().Companies.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return companies, nil
}
