package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const testMaxBytes = 1024

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	blobs   *storage.DiskStore
	clock   *fakeClock
	events  *recordedEvents
	tickets *TicketService
	assign  *AssignmentService
	files   *AttachmentService
	catalog *CatalogService

	companyA, companyB       int64
	serviceType, retiredType int64

	admin, tech, user, colleague, responsible, outsider, homeless, client *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	f := &fixture{
		ctx:    ctx,
		store:  store,
		blobs:  storage.NewDiskStore(t.TempDir()),
		clock:  &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		events: &recordedEvents{},
	}

	companyA := &domain.Company{Name: "TechCorp Ltda", Email: "contato@techcorp.com", Active: true}
	companyB := &domain.Company{Name: "InovaLabs", Email: "info@inovalabs.com", Active: true}
	require.NoError(t, repos.Companies.Create(ctx, companyA))
	require.NoError(t, repos.Companies.Create(ctx, companyB))
	f.companyA, f.companyB = companyA.ID, companyB.ID

	consulting := &domain.ServiceType{Name: "Consultoria em T.I.", Active: true}
	retired := &domain.ServiceType{Name: "Suporte Legado", Active: false}
	require.NoError(t, repos.ServiceTypes.Create(ctx, consulting))
	require.NoError(t, repos.ServiceTypes.Create(ctx, retired))
	f.serviceType, f.retiredType = consulting.ID, retired.ID

	newUser := func(name string, role domain.Role, company *int64, responsible bool) *domain.User {
		u := &domain.User{
			Name:                 name,
			Email:                name + "@aurum.com",
			Role:                 role,
			CompanyID:            company,
			IsCompanyResponsible: responsible,
			Active:               true,
		}
		require.NoError(t, repos.Users.Create(ctx, u))
		return u
	}
	a, b := f.companyA, f.companyB
	f.admin = newUser("admin", domain.RoleAdministrator, nil, false)
	f.tech = newUser("joao", domain.RoleTechnician, nil, false)
	f.user = newUser("maria", domain.RoleUser, &a, false)
	f.colleague = newUser("pedro", domain.RoleUser, &a, false)
	f.responsible = newUser("ana", domain.RoleUser, &a, true)
	f.outsider = newUser("carlos", domain.RoleUser, &b, false)
	f.homeless = newUser("semempresa", domain.RoleUser, nil, false)
	f.client = newUser("cliente", domain.RoleUser, &b, false)

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventAny, f.events.handle)

	clock := Clock(f.clock.Now)
	f.files = NewAttachmentService(AttachmentDependencies{
		Store:      store,
		Blobs:      f.blobs,
		Dispatcher: dispatcher,
		Clock:      clock,
		MaxBytes:   testMaxBytes,
	})
	f.tickets = NewTicketService(TicketDependencies{
		Store:       store,
		Attachments: f.files,
		Dispatcher:  dispatcher,
		Clock:       clock,
	})
	f.assign = NewAssignmentService(AssignmentDependencies{Store: store, Dispatcher: dispatcher, Clock: clock})
	f.catalog = NewCatalogService(store)
	return f
}

// openTicket files a ticket as actor and fails the test on error.
func (f *fixture) openTicket(t *testing.T, actor *domain.User, files ...FileUpload) *domain.TicketDetails {
	t.Helper()
	ticket, err := f.tickets.Create(f.ctx, actor, TicketCreateInput{
		Title:         "Printer down",
		Description:   "Printer on 3rd floor offline",
		ServiceTypeID: f.serviceType,
		Files:         files,
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) ticketCount(t *testing.T) int {
	t.Helper()
	list, err := f.tickets.List(f.ctx, f.admin, ListOptions{})
	require.NoError(t, err)
	return len(list)
}

func upload(name string, content []byte) FileUpload {
	return FileUpload{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %T: %v", err, err)
	require.Equal(t, code, domainErr.Code, domainErr.Message)
}

func ptr[T any](v T) *T {
	return &v
}
