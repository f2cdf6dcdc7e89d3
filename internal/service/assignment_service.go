package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	store  repository.Store
	events publisher
	logger *zap.Logger
	now    Clock
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock.orDefault()
	return &AssignmentService{
		store:  deps.Store,
		events: publisher{dispatcher: deps.Dispatcher, logger: logger, now: now},
		logger: logger,
		now:    now,
	}
}

// Assign sets or clears the technician responsible for a ticket. Assigning
// someone to an open ticket moves it to in progress; clearing never reverts
// the status.
func (s *AssignmentService) Assign(ctx context.Context, actor *domain.User, ticketID int64, assigneeID *int64) (*domain.TicketDetails, error) {
	perms, err := requireStaff(actor)
	if err != nil {
		return nil, err
	}

	var (
		ticket  *domain.Ticket
		changes ticketChanges
	)
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err = loadVisibleTicket(ctx, repos.Tickets, perms, ticketID, true)
		if err != nil {
			return err
		}
		assignee, err := resolveAssignee(ctx, repos.Users, assigneeID)
		if err != nil {
			return err
		}
		now := s.now()
		changes.assign(ticket, assignee, actor.ID, now, true)
		ticket.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return repoError(err, "ticket", ticket.ID)
		}
		return changes.persist(ctx, repos.History)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket assignment changed",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("actor_id", actor.ID),
		zap.Bool("assigned", ticket.AssignedTo != nil))
	changes.publish(ctx, s.events, actor, ticket.ID)
	return ticketDetails(ctx, s.store.Repositories(), ticket)
}

// resolveAssignee loads the target of an assignment. Only active staff may
// hold tickets; nil clears the assignment.
func resolveAssignee(ctx context.Context, users repository.UserRepository, id *int64) (*domain.User, error) {
	if id == nil {
		return nil, nil
	}
	user, err := users.GetByID(ctx, *id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("assignee not found", map[string]any{"assigned_to": *id})
		}
		return nil, repoError(err, "user", *id)
	}
	if !user.Role.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must be a technician or administrator", map[string]any{
			"assigned_to": *id, "role": user.Role,
		})
	}
	if !user.Active {
		return nil, apperrors.NewValidationError("assignee is inactive", map[string]any{"assigned_to": *id})
	}
	return user, nil
}

// ticketChanges collects the audit entries and events of one mutation so they
// can be written in the transaction and published after it.
type ticketChanges struct {
	fields  []string
	history []*domain.TicketHistory

	statusChanged bool
	oldStatus     domain.TicketStatus
	newStatus     domain.TicketStatus

	assigneeChanged bool
	oldAssignee     *int64
	newAssignee     *int64
}

func (c *ticketChanges) add(entry *domain.TicketHistory, field string) {
	c.history = append(c.history, entry)
	c.fields = append(c.fields, field)
}

// setStatus keeps closed_at consistent with the status.
func (c *ticketChanges) setStatus(ticket *domain.Ticket, status domain.TicketStatus, actorID int64, at time.Time) {
	if ticket.Status == status {
		return
	}
	c.add(historyEntry(ticket.ID, actorID, domain.ChangeTypeStatus, "status", ticket.Status, status, at), "status")
	if !c.statusChanged {
		c.oldStatus = ticket.Status
	}
	c.statusChanged = true
	c.newStatus = status

	ticket.Status = status
	if status == domain.TicketStatusClosed {
		closedAt := at
		ticket.ClosedAt = &closedAt
	} else {
		ticket.ClosedAt = nil
	}
}

func (c *ticketChanges) assign(ticket *domain.Ticket, assignee *domain.User, actorID int64, at time.Time, autoStart bool) {
	var next *int64
	if assignee != nil {
		id := assignee.ID
		next = &id
	}
	if !sameID(ticket.AssignedTo, next) {
		c.add(historyEntry(ticket.ID, actorID, domain.ChangeTypeAssignee, "assigned_to", idValue(ticket.AssignedTo), idValue(next), at), "assigned_to")
		c.assigneeChanged = true
		c.oldAssignee = ticket.AssignedTo
		c.newAssignee = next
		ticket.AssignedTo = next
	}
	if next != nil && autoStart && ticket.Status == domain.TicketStatusOpen {
		c.setStatus(ticket, domain.TicketStatusInProgress, actorID, at)
	}
}

func (c *ticketChanges) persist(ctx context.Context, history repository.TicketHistoryRepository) error {
	for _, entry := range c.history {
		if err := history.Create(ctx, entry); err != nil {
			return repoError(err, "ticket history", entry.TicketID)
		}
	}
	return nil
}

func (c *ticketChanges) publish(ctx context.Context, p publisher, actor *domain.User, ticketID int64) {
	if c.statusChanged && c.newStatus != domain.TicketStatusClosed {
		p.publish(ctx, actor, events.EventTicketStatusChanged, ticketID, events.TicketStatusChangedPayload{
			OldStatus: c.oldStatus,
			NewStatus: c.newStatus,
		})
	}
	if c.statusChanged && c.newStatus == domain.TicketStatusClosed {
		p.publish(ctx, actor, events.EventTicketClosed, ticketID, events.TicketClosedPayload{})
	}
	if c.assigneeChanged {
		p.publish(ctx, actor, events.EventTicketAssigned, ticketID, events.TicketAssignedPayload{
			OldAssignee: c.oldAssignee,
			NewAssignee: c.newAssignee,
		})
	}
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func idValue(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
