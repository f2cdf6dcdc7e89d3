package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDerive(t *testing.T) {
	tests := []struct {
		name        string
		user        *domain.User
		wantAdmin   bool
		wantStaff   bool
		wantCompany bool
	}{
		{name: "administrator", user: &domain.User{ID: 1, Role: domain.RoleAdministrator}, wantAdmin: true, wantStaff: true},
		{name: "technician", user: &domain.User{ID: 2, Role: domain.RoleTechnician}, wantStaff: true},
		{name: "regular user", user: &domain.User{ID: 3, Role: domain.RoleUser, CompanyID: int64Ptr(10)}},
		{name: "company responsible", user: &domain.User{ID: 4, Role: domain.RoleUser, CompanyID: int64Ptr(10), IsCompanyResponsible: true}, wantCompany: true},
		{name: "responsible without company", user: &domain.User{ID: 5, Role: domain.RoleUser, IsCompanyResponsible: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms := Derive(tt.user)
			require.NotNil(t, perms)
			assert.Equal(t, tt.user.ID, perms.UserID)
			assert.Equal(t, tt.wantAdmin, perms.IsAdmin)
			assert.Equal(t, tt.wantStaff, perms.IsTechnician)
			assert.Equal(t, tt.wantStaff, perms.CanViewAll)
			assert.Equal(t, tt.wantCompany, perms.CanViewOwnCompanyTickets)
		})
	}
}

func TestDeriveRejectsMissingOrUnknownUser(t *testing.T) {
	assert.Nil(t, Derive(nil))
	assert.Nil(t, Derive(&domain.User{ID: 9, Role: domain.Role("root")}))
}

func TestCanView(t *testing.T) {
	ticket := &domain.Ticket{ID: 100, CompanyID: 10, CreatedBy: 3}

	tests := []struct {
		name string
		user *domain.User
		want bool
	}{
		{name: "admin sees everything", user: &domain.User{ID: 1, Role: domain.RoleAdministrator}, want: true},
		{name: "technician sees everything", user: &domain.User{ID: 2, Role: domain.RoleTechnician}, want: true},
		{name: "creator", user: &domain.User{ID: 3, Role: domain.RoleUser, CompanyID: int64Ptr(10)}, want: true},
		{name: "same company, not responsible", user: &domain.User{ID: 4, Role: domain.RoleUser, CompanyID: int64Ptr(10)}, want: false},
		{name: "same company, responsible", user: &domain.User{ID: 5, Role: domain.RoleUser, CompanyID: int64Ptr(10), IsCompanyResponsible: true}, want: true},
		{name: "other company, responsible", user: &domain.User{ID: 6, Role: domain.RoleUser, CompanyID: int64Ptr(11), IsCompanyResponsible: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.user).CanView(ticket))
		})
	}

	var none *Permissions
	assert.False(t, none.CanView(ticket))
}

func TestCanDelete(t *testing.T) {
	ticket := &domain.Ticket{ID: 100, CompanyID: 10, CreatedBy: 3}

	assert.True(t, Derive(&domain.User{ID: 1, Role: domain.RoleAdministrator}).CanDelete(ticket))
	assert.True(t, Derive(&domain.User{ID: 3, Role: domain.RoleUser}).CanDelete(ticket))
	assert.False(t, Derive(&domain.User{ID: 2, Role: domain.RoleTechnician}).CanDelete(ticket))
	assert.False(t, Derive(&domain.User{ID: 5, Role: domain.RoleUser, CompanyID: int64Ptr(10), IsCompanyResponsible: true}).CanDelete(ticket))
}

func TestScope(t *testing.T) {
	company, creator := Derive(&domain.User{ID: 1, Role: domain.RoleTechnician}).Scope()
	assert.Nil(t, company)
	assert.Nil(t, creator)

	company, creator = Derive(&domain.User{ID: 5, Role: domain.RoleUser, CompanyID: int64Ptr(10), IsCompanyResponsible: true}).Scope()
	require.NotNil(t, company)
	assert.Equal(t, int64(10), *company)
	assert.Nil(t, creator)

	company, creator = Derive(&domain.User{ID: 3, Role: domain.RoleUser, CompanyID: int64Ptr(10)}).Scope()
	assert.Nil(t, company)
	require.NotNil(t, creator)
	assert.Equal(t, int64(3), *creator)
}
