// Package access derives what a user may do with tickets.
package access

import "github.com/spec-kit/helpdesk-service/internal/domain"

// Permissions is the capability set of a single user.
type Permissions struct {
	UserID                   int64
	IsAdmin                  bool
	IsTechnician             bool
	CanViewAll               bool
	CanViewOwnCompanyTickets bool
	CompanyID                *int64
}

// Derive builds the capability set for user. A nil user yields nil, which
// callers must treat as unauthenticated.
func Derive(user *domain.User) *Permissions {
	if user == nil || !user.Role.Valid() {
		return nil
	}
	staff := user.Role.IsStaff()
	perms := &Permissions{
		UserID:       user.ID,
		IsAdmin:      user.Role == domain.RoleAdministrator,
		IsTechnician: staff,
		CanViewAll:   staff,
	}
	if user.CompanyID != nil {
		id := *user.CompanyID
		perms.CompanyID = &id
		perms.CanViewOwnCompanyTickets = user.IsCompanyResponsible
	}
	return perms
}

// CanView is the ticket-scoped access predicate shared by every ticket operation.
func (p *Permissions) CanView(ticket *domain.Ticket) bool {
	if p == nil || ticket == nil {
		return false
	}
	if p.CanViewAll {
		return true
	}
	if p.CanViewOwnCompanyTickets && p.CompanyID != nil && *p.CompanyID == ticket.CompanyID {
		return true
	}
	return ticket.CreatedBy == p.UserID
}

// CanDelete allows administrators and the ticket's creator.
func (p *Permissions) CanDelete(ticket *domain.Ticket) bool {
	if p == nil || ticket == nil {
		return false
	}
	return p.IsAdmin || ticket.CreatedBy == p.UserID
}

// Scope narrows listings to what the user may see. Both nil means unrestricted.
func (p *Permissions) Scope() (companyID *int64, creatorID *int64) {
	if p == nil {
		id := int64(-1)
		return nil, &id
	}
	if p.CanViewAll {
		return nil, nil
	}
	if p.CanViewOwnCompanyTickets && p.CompanyID != nil {
		id := *p.CompanyID
		return &id, nil
	}
	id := p.UserID
	return nil, &id
}
