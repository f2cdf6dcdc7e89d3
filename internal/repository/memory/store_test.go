package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func newTicket(createdBy, companyID int64, at time.Time) *domain.Ticket {
	return &domain.Ticket{
		Title:         "Printer down",
		Description:   "offline",
		Status:        domain.TicketStatusOpen,
		Priority:      domain.TicketPriorityMedium,
		ServiceTypeID: 1,
		CompanyID:     companyID,
		CreatedBy:     createdBy,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket := newTicket(1, 1, time.Now())
		require.NoError(t, repos.Tickets.Create(ctx, ticket))
		require.NoError(t, repos.Responses.Create(ctx, &domain.TicketResponse{TicketID: ticket.ID, AuthorID: 1, Message: "hi"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	tickets, err := store.Repositories().Tickets.List(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var id int64
	err := store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket := newTicket(1, 1, time.Now())
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		id = ticket.ID
		return nil
	})
	require.NoError(t, err)

	got, err := store.Repositories().Tickets.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Printer down", got.Title)
}

func TestTicketFilterAndCounts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := newTicket(1, 10, base)
	second := newTicket(2, 10, base.Add(time.Minute))
	second.Status = domain.TicketStatusClosed
	third := newTicket(2, 20, base.Add(2*time.Minute))
	for _, ticket := range []*domain.Ticket{first, second, third} {
		require.NoError(t, repos.Tickets.Create(ctx, ticket))
	}

	company := int64(10)
	list, err := repos.Tickets.List(ctx, repository.TicketFilter{CompanyID: &company})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	creator := int64(2)
	counts, err := repos.Tickets.CountByStatus(ctx, repository.TicketFilter{CreatorID: &creator})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.TicketStatusOpen])
	assert.Equal(t, int64(1), counts[domain.TicketStatusClosed])

	page, err := repos.Tickets.List(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
}

func TestUpdateKeepsOwnershipFields(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	ticket := newTicket(1, 10, time.Now())
	require.NoError(t, repos.Tickets.Create(ctx, ticket))

	changed := *ticket
	changed.CompanyID = 99
	changed.Title = "New title"
	require.NoError(t, repos.Tickets.Update(ctx, &changed))

	got, err := repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.CompanyID)
	assert.Equal(t, "New title", got.Title)

	assert.ErrorIs(t, repos.Tickets.Update(ctx, &domain.Ticket{ID: 404}), repository.ErrNotFound)
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	require.NoError(t, repos.Users.Create(ctx, &domain.User{Email: "Admin@Aurum.com", Role: domain.RoleAdministrator}))
	err := repos.Users.Create(ctx, &domain.User{Email: "admin@aurum.com", Role: domain.RoleUser})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	user, err := repos.Users.GetByEmail(ctx, "ADMIN@aurum.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdministrator, user.Role)

	require.NoError(t, repos.ServiceTypes.Create(ctx, &domain.ServiceType{Name: "Consultoria em T.I.", Active: true}))
	assert.ErrorIs(t, repos.ServiceTypes.Create(ctx, &domain.ServiceType{Name: "Consultoria em T.I."}), repository.ErrDuplicate)
}

func TestReturnedTicketsAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	assignee := int64(5)
	ticket := newTicket(1, 10, time.Now())
	ticket.AssignedTo = &assignee
	require.NoError(t, repos.Tickets.Create(ctx, ticket))

	got, err := repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	*got.AssignedTo = 99

	again, err := repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), *again.AssignedTo)
}
