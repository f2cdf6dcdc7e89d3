package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type userRepo struct{ v *view }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	return r.v.write(func(s *state) error {
		email := strings.ToLower(user.Email)
		for _, existing := range s.users {
			if existing.Email == email {
				return repository.ErrDuplicate
			}
		}
		user.ID = s.nextID("users")
		user.Email = email
		s.users[user.ID] = cloneUser(*user)
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := r.v.read(func(s *state) error {
		user, ok := s.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := cloneUser(user)
		out = &cp
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	email = strings.ToLower(email)
	err := r.v.read(func(s *state) error {
		for _, user := range s.users {
			if user.Email == email {
				cp := cloneUser(user)
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

type companyRepo struct{ v *view }

func (r *companyRepo) Create(_ context.Context, company *domain.Company) error {
	return r.v.write(func(s *state) error {
		for _, existing := range s.companies {
			if existing.Email == company.Email {
				return repository.ErrDuplicate
			}
		}
		company.ID = s.nextID("companies")
		s.companies[company.ID] = *company
		return nil
	})
}

func (r *companyRepo) GetByID(_ context.Context, id int64) (*domain.Company, error) {
	var out *domain.Company
	err := r.v.read(func(s *state) error {
		company, ok := s.companies[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &company
		return nil
	})
	return out, err
}

func (r *companyRepo) GetByEmail(_ context.Context, email string) (*domain.Company, error) {
	var out *domain.Company
	err := r.v.read(func(s *state) error {
		for _, company := range s.companies {
			if company.Email == email {
				c := company
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *companyRepo) ListActive(_ context.Context) ([]domain.Company, error) {
	var out []domain.Company
	err := r.v.read(func(s *state) error {
		for _, company := range s.companies {
			if company.Active {
				out = append(out, company)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type serviceTypeRepo struct{ v *view }

func (r *serviceTypeRepo) Create(_ context.Context, serviceType *domain.ServiceType) error {
	return r.v.write(func(s *state) error {
		for _, existing := range s.serviceTypes {
			if existing.Name == serviceType.Name {
				return repository.ErrDuplicate
			}
		}
		serviceType.ID = s.nextID("service_types")
		s.serviceTypes[serviceType.ID] = *serviceType
		return nil
	})
}

func (r *serviceTypeRepo) GetByID(_ context.Context, id int64) (*domain.ServiceType, error) {
	var out *domain.ServiceType
	err := r.v.read(func(s *state) error {
		st, ok := s.serviceTypes[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &st
		return nil
	})
	return out, err
}

func (r *serviceTypeRepo) GetByName(_ context.Context, name string) (*domain.ServiceType, error) {
	var out *domain.ServiceType
	err := r.v.read(func(s *state) error {
		for _, st := range s.serviceTypes {
			if st.Name == name {
				cp := st
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *serviceTypeRepo) ListActive(_ context.Context) ([]domain.ServiceType, error) {
	var out []domain.ServiceType
	err := r.v.read(func(s *state) error {
		for _, st := range s.serviceTypes {
			if st.Active {
				out = append(out, st)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}
