package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type responseRepo struct{ v *view }

func (r *responseRepo) Create(_ context.Context, response *domain.TicketResponse) error {
	return r.v.write(func(s *state) error {
		response.ID = s.nextID("ticket_responses")
		s.responses[response.ID] = *response
		return nil
	})
}

func (r *responseRepo) ListByTicket(_ context.Context, ticketID int64, includeInternal bool) ([]domain.TicketResponse, error) {
	var out []domain.TicketResponse
	err := r.v.read(func(s *state) error {
		for _, response := range s.responses {
			if response.TicketID != ticketID || (response.IsInternal && !includeInternal) {
				continue
			}
			out = append(out, response)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r *responseRepo) DeleteByTicket(_ context.Context, ticketID int64) error {
	return r.v.write(func(s *state) error {
		for id, response := range s.responses {
			if response.TicketID == ticketID {
				delete(s.responses, id)
			}
		}
		return nil
	})
}

type fileRepo struct{ v *view }

func (r *fileRepo) Create(_ context.Context, file *domain.TicketFile) error {
	return r.v.write(func(s *state) error {
		file.ID = s.nextID("ticket_files")
		s.files[file.ID] = *file
		return nil
	})
}

func (r *fileRepo) GetByID(_ context.Context, id int64) (*domain.TicketFile, error) {
	var out *domain.TicketFile
	err := r.v.read(func(s *state) error {
		file, ok := s.files[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &file
		return nil
	})
	return out, err
}

func (r *fileRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketFile, error) {
	var out []domain.TicketFile
	err := r.v.read(func(s *state) error {
		for _, file := range s.files {
			if file.TicketID == ticketID {
				out = append(out, file)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *fileRepo) Delete(_ context.Context, id int64) error {
	return r.v.write(func(s *state) error {
		if _, ok := s.files[id]; !ok {
			return repository.ErrNotFound
		}
		delete(s.files, id)
		return nil
	})
}

func (r *fileRepo) DeleteByTicket(_ context.Context, ticketID int64) error {
	return r.v.write(func(s *state) error {
		for id, file := range s.files {
			if file.TicketID == ticketID {
				delete(s.files, id)
			}
		}
		return nil
	})
}

type historyRepo struct{ v *view }

func (r *historyRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	return r.v.write(func(s *state) error {
		history.ID = s.nextID("ticket_history")
		s.history[history.ID] = *history
		return nil
	})
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	err := r.v.read(func(s *state) error {
		for _, entry := range s.history {
			if entry.TicketID == ticketID {
				out = append(out, entry)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *historyRepo) DeleteByTicket(_ context.Context, ticketID int64) error {
	return r.v.write(func(s *state) error {
		for id, entry := range s.history {
			if entry.TicketID == ticketID {
				delete(s.history, id)
			}
		}
		return nil
	})
}
