package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CompanyRepository reads and seeds the company directory.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id int64) (*domain.Company, error)
	GetByEmail(ctx context.Context, email string) (*domain.Company, error)
	ListActive(ctx context.Context) ([]domain.Company, error)
}

type companyRepository struct {
	db Querier
}

const companyColumns = `id, name, email, phone, address, active, created_at, updated_at`

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (name, email, phone, address, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return mapError(r.db.QueryRow(ctx, query,
		company.Name,
		company.Email,
		company.Phone,
		company.Address,
		company.Active,
		company.CreatedAt,
		company.UpdatedAt,
	).Scan(&company.ID))
}

func (r *companyRepository) GetByID(ctx context.Context, id int64) (*domain.Company, error) {
	return r.fetchSingle(ctx, `SELECT `+companyColumns+` FROM companies WHERE id=$1`, id)
}

func (r *companyRepository) GetByEmail(ctx context.Context, email string) (*domain.Company, error) {
	return r.fetchSingle(ctx, `SELECT `+companyColumns+` FROM companies WHERE email=$1`, email)
}

func (r *companyRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Company, error) {
	var company domain.Company
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&company.ID,
		&company.Name,
		&company.Email,
		&company.Phone,
		&company.Address,
		&company.Active,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &company, nil
}

func (r *companyRepository) ListActive(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.db.Query(ctx, `SELECT `+companyColumns+` FROM companies WHERE active ORDER BY name ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Company
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(
			&company.ID,
			&company.Name,
			&company.Email,
			&company.Phone,
			&company.Address,
			&company.Active,
			&company.CreatedAt,
			&company.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, company)
	}
	return result, rows.Err()
}
