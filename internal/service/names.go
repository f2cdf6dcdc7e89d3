package service

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// nameResolver resolves display names for read models, caching lookups for
// the duration of one call. Missing records resolve to empty names.
type nameResolver struct {
	repos        repository.Repositories
	users        map[int64]*domain.User
	companies    map[int64]*domain.Company
	serviceTypes map[int64]*domain.ServiceType
}

func newNameResolver(repos repository.Repositories) *nameResolver {
	return &nameResolver{
		repos:        repos,
		users:        make(map[int64]*domain.User),
		companies:    make(map[int64]*domain.Company),
		serviceTypes: make(map[int64]*domain.ServiceType),
	}
}

func (n *nameResolver) user(ctx context.Context, id int64) (*domain.User, error) {
	if u, ok := n.users[id]; ok {
		return u, nil
	}
	u, err := n.repos.Users.GetByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	n.users[id] = u
	return u, nil
}

func (n *nameResolver) company(ctx context.Context, id int64) (*domain.Company, error) {
	if c, ok := n.companies[id]; ok {
		return c, nil
	}
	c, err := n.repos.Companies.GetByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	n.companies[id] = c
	return c, nil
}

func (n *nameResolver) serviceType(ctx context.Context, id int64) (*domain.ServiceType, error) {
	if st, ok := n.serviceTypes[id]; ok {
		return st, nil
	}
	st, err := n.repos.ServiceTypes.GetByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	n.serviceTypes[id] = st
	return st, nil
}

func (n *nameResolver) ticket(ctx context.Context, ticket *domain.Ticket) (*domain.TicketDetails, error) {
	d := &domain.TicketDetails{Ticket: *ticket}

	st, err := n.serviceType(ctx, ticket.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		d.ServiceTypeName = st.Name
	}
	company, err := n.company(ctx, ticket.CompanyID)
	if err != nil {
		return nil, err
	}
	if company != nil {
		d.CompanyName = company.Name
	}
	creator, err := n.user(ctx, ticket.CreatedBy)
	if err != nil {
		return nil, err
	}
	if creator != nil {
		d.CreatorName = creator.Name
	}
	if ticket.AssignedTo != nil {
		assignee, err := n.user(ctx, *ticket.AssignedTo)
		if err != nil {
			return nil, err
		}
		if assignee != nil {
			name := assignee.Name
			d.AssigneeName = &name
		}
	}
	return d, nil
}

// ticketDetails builds the full read model, files included.
func ticketDetails(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket) (*domain.TicketDetails, error) {
	d, err := newNameResolver(repos).ticket(ctx, ticket)
	if err != nil {
		return nil, err
	}
	files, err := repos.Files.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	d.Files = files
	return d, nil
}
