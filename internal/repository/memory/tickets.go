package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type ticketRepo struct{ v *view }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.v.write(func(s *state) error {
		ticket.ID = s.nextID("tickets")
		s.tickets[ticket.ID] = cloneTicket(*ticket)
		return nil
	})
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.v.write(func(s *state) error {
		current, ok := s.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		next := cloneTicket(*ticket)
		next.CompanyID = current.CompanyID
		next.CreatedBy = current.CreatedBy
		next.CreatedAt = current.CreatedAt
		s.tickets[ticket.ID] = next
		return nil
	})
}

func (r *ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.v.read(func(s *state) error {
		ticket, ok := s.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := cloneTicket(ticket)
		out = &cp
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions are already serialized.
func (r *ticketRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) Delete(_ context.Context, id int64) error {
	return r.v.write(func(s *state) error {
		if _, ok := s.tickets[id]; !ok {
			return repository.ErrNotFound
		}
		delete(s.tickets, id)
		return nil
	})
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.v.read(func(s *state) error {
		for _, ticket := range s.tickets {
			if matches(ticket, filter) {
				out = append(out, cloneTicket(ticket))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(out) {
			return nil, nil
		}
		end := offset + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[offset:end]
	}
	return out, nil
}

func (r *ticketRepo) CountByStatus(_ context.Context, filter repository.TicketFilter) (map[domain.TicketStatus]int64, error) {
	counts := make(map[domain.TicketStatus]int64)
	err := r.v.read(func(s *state) error {
		for _, ticket := range s.tickets {
			if matches(ticket, filter) {
				counts[ticket.Status]++
			}
		}
		return nil
	})
	return counts, err
}

func matches(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CompanyID != nil && ticket.CompanyID != *filter.CompanyID {
		return false
	}
	if filter.CreatorID != nil && ticket.CreatedBy != *filter.CreatorID {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
