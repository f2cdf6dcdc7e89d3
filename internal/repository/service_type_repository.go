package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ServiceTypeRepository reads and seeds the service catalog.
type ServiceTypeRepository interface {
	Create(ctx context.Context, serviceType *domain.ServiceType) error
	GetByID(ctx context.Context, id int64) (*domain.ServiceType, error)
	GetByName(ctx context.Context, name string) (*domain.ServiceType, error)
	ListActive(ctx context.Context) ([]domain.ServiceType, error)
}

type serviceTypeRepository struct {
	db Querier
}

func (r *serviceTypeRepository) Create(ctx context.Context, serviceType *domain.ServiceType) error {
	const query = `
        INSERT INTO service_types (name, description, active, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return mapError(r.db.QueryRow(ctx, query,
		serviceType.Name,
		serviceType.Description,
		serviceType.Active,
		serviceType.CreatedAt,
	).Scan(&serviceType.ID))
}

func (r *serviceTypeRepository) GetByID(ctx context.Context, id int64) (*domain.ServiceType, error) {
	return r.fetchSingle(ctx, `SELECT id, name, description, active, created_at FROM service_types WHERE id=$1`, id)
}

func (r *serviceTypeRepository) GetByName(ctx context.Context, name string) (*domain.ServiceType, error) {
	return r.fetchSingle(ctx, `SELECT id, name, description, active, created_at FROM service_types WHERE name=$1`, name)
}

func (r *serviceTypeRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ServiceType, error) {
	var st domain.ServiceType
	if err := r.db.QueryRow(ctx, query, arg).Scan(&st.ID, &st.Name, &st.Description, &st.Active, &st.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &st, nil
}

func (r *serviceTypeRepository) ListActive(ctx context.Context) ([]domain.ServiceType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, active, created_at FROM service_types WHERE active ORDER BY name ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.ServiceType
	for rows.Next() {
		var st domain.ServiceType
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.Active, &st.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}
