package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type seedUser struct {
	name, email, password string
	role                  domain.Role
	companyEmail          string
}

var (
	defaultCompanies = []domain.Company{
		{Name: "TechCorp Ltda", Email: "contato@techcorp.com", Phone: "(11) 9999-9999"},
		{Name: "InovaLabs", Email: "info@inovalabs.com", Phone: "(11) 8888-8888"},
		{Name: "DataGuard Solutions", Email: "suporte@dataguard.com", Phone: "(11) 7777-7777"},
	}
	defaultServiceTypes = []domain.ServiceType{
		{Name: "Consultoria em T.I.", Description: "Consultoria especializada em tecnologia da informação"},
		{Name: "Segurança da Informação", Description: "Serviços de segurança e proteção de dados"},
		{Name: "Desenvolvimento de Software", Description: "Desenvolvimento de aplicações e sistemas"},
	}
	defaultUsers = []seedUser{
		{name: "admin.sistema", email: "admin@aurum.com", password: "admin123", role: domain.RoleAdministrator},
		{name: "joao.silva", email: "joao@aurum.com", password: "tecnico123", role: domain.RoleTechnician},
		{name: "maria.santos", email: "maria@aurum.com", password: "usuario123", role: domain.RoleUser, companyEmail: "contato@techcorp.com"},
	}
)

// SeedResult counts the records created by a seed run.
type SeedResult struct {
	Companies    int
	ServiceTypes int
	Users        int
}

// SeedService installs the bootstrap data a fresh deployment needs.
type SeedService struct {
	store      repository.Store
	bcryptCost int
	logger     *zap.Logger
	now        Clock
}

// NewSeedService creates the service.
func NewSeedService(store repository.Store, bcryptCost int, logger *zap.Logger, clock Clock) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{store: store, bcryptCost: bcryptCost, logger: logger, now: clock.orDefault()}
}

// Run creates every default record that is missing. Existing records are left
// untouched, so running it twice is harmless.
func (s *SeedService) Run(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{}
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()
		companyIDs := make(map[string]int64)

		for _, c := range defaultCompanies {
			existing, err := repos.Companies.GetByEmail(ctx, c.Email)
			if err == nil {
				companyIDs[c.Email] = existing.ID
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			company := c
			company.Active = true
			company.CreatedAt = now
			company.UpdatedAt = now
			if err := repos.Companies.Create(ctx, &company); err != nil {
				return err
			}
			companyIDs[c.Email] = company.ID
			result.Companies++
		}

		for _, st := range defaultServiceTypes {
			_, err := repos.ServiceTypes.GetByName(ctx, st.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			serviceType := st
			serviceType.Active = true
			serviceType.CreatedAt = now
			if err := repos.ServiceTypes.Create(ctx, &serviceType); err != nil {
				return err
			}
			result.ServiceTypes++
		}

		for _, u := range defaultUsers {
			_, err := repos.Users.GetByEmail(ctx, u.email)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			hash, err := auth.HashPassword(u.password, s.bcryptCost)
			if err != nil {
				return err
			}
			user := &domain.User{
				Name:         u.name,
				Email:        u.email,
				PasswordHash: hash,
				Role:         u.role,
				Active:       true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if id, ok := companyIDs[u.companyEmail]; ok {
				user.CompanyID = &id
			}
			if err := repos.Users.Create(ctx, user); err != nil {
				return err
			}
			result.Users++
		}
		return nil
	})
	if err != nil {
		return nil, repoError(err, "seed record", 0)
	}

	if result.Users > 0 {
		s.logger.Warn("default accounts created with well-known passwords; change them before exposing the service",
			zap.Int("users", result.Users))
	}
	s.logger.Info("seed complete",
		zap.Int("companies", result.Companies),
		zap.Int("service_types", result.ServiceTypes),
		zap.Int("users", result.Users))
	return result, nil
}

