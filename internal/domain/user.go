package domain

import "time"

// Role enumerates the helpdesk roles.
type Role string

const (
	RoleAdministrator Role = "administrador"
	RoleTechnician    Role = "tecnico"
	RoleUser          Role = "usuario"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleTechnician, RoleUser:
		return true
	}
	return false
}

// IsStaff reports whether the role handles tickets (administrators and technicians).
func (r Role) IsStaff() bool {
	return r == RoleAdministrator || r == RoleTechnician
}

// User is an account of the identity directory.
type User struct {
	ID                   int64
	Name                 string
	Email                string
	PasswordHash         string
	Role                 Role
	CompanyID            *int64
	IsCompanyResponsible bool
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
