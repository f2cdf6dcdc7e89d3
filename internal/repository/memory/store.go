// Package memory is an in-process repository.Store used when no database is
// configured and by tests.
package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type state struct {
	seq          map[string]int64
	tickets      map[int64]domain.Ticket
	responses    map[int64]domain.TicketResponse
	files        map[int64]domain.TicketFile
	history      map[int64]domain.TicketHistory
	users        map[int64]domain.User
	companies    map[int64]domain.Company
	serviceTypes map[int64]domain.ServiceType
}

func newState() *state {
	return &state{
		seq:          make(map[string]int64),
		tickets:      make(map[int64]domain.Ticket),
		responses:    make(map[int64]domain.TicketResponse),
		files:        make(map[int64]domain.TicketFile),
		history:      make(map[int64]domain.TicketHistory),
		users:        make(map[int64]domain.User),
		companies:    make(map[int64]domain.Company),
		serviceTypes: make(map[int64]domain.ServiceType),
	}
}

func (s *state) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.seq {
		out.seq[k] = v
	}
	for k, v := range s.tickets {
		out.tickets[k] = cloneTicket(v)
	}
	for k, v := range s.responses {
		out.responses[k] = v
	}
	for k, v := range s.files {
		out.files[k] = v
	}
	for k, v := range s.history {
		out.history[k] = v
	}
	for k, v := range s.users {
		out.users[k] = cloneUser(v)
	}
	for k, v := range s.companies {
		out.companies[k] = v
	}
	for k, v := range s.serviceTypes {
		out.serviceTypes[k] = v
	}
	return out
}

// Store keeps all records in maps. Transactions work on a private copy that
// replaces the committed state only when the callback succeeds, and are
// serialized against each other and against non-transactional writes.
type Store struct {
	txMu   sync.Mutex
	dataMu sync.RWMutex
	data   *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Repositories() repository.Repositories {
	return bind(&view{store: s})
}

func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.dataMu.RLock()
	working := s.data.clone()
	s.dataMu.RUnlock()

	if err := fn(bind(&view{store: s, tx: working})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.dataMu.Lock()
	s.data = working
	s.dataMu.Unlock()
	return nil
}

type view struct {
	store *Store
	tx    *state
}

func (v *view) read(fn func(*state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.dataMu.RLock()
	defer v.store.dataMu.RUnlock()
	return fn(v.store.data)
}

func (v *view) write(fn func(*state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.txMu.Lock()
	defer v.store.txMu.Unlock()
	v.store.dataMu.Lock()
	defer v.store.dataMu.Unlock()
	return fn(v.store.data)
}

func bind(v *view) repository.Repositories {
	return repository.Repositories{
		Tickets:      &ticketRepo{v: v},
		Responses:    &responseRepo{v: v},
		Files:        &fileRepo{v: v},
		History:      &historyRepo{v: v},
		Users:        &userRepo{v: v},
		Companies:    &companyRepo{v: v},
		ServiceTypes: &serviceTypeRepo{v: v},
	}
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		t.AssignedTo = &id
	}
	if t.ClosedAt != nil {
		ts := *t.ClosedAt
		t.ClosedAt = &ts
	}
	return t
}

func cloneUser(u domain.User) domain.User {
	if u.CompanyID != nil {
		id := *u.CompanyID
		u.CompanyID = &id
	}
	return u
}
