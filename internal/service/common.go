package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Clock returns the current time. Services take one so tests can control timestamps.
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func permissionsFor(actor *domain.User) (*access.Permissions, error) {
	perms := access.Derive(actor)
	if perms == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	return perms, nil
}

func requireStaff(actor *domain.User) (*access.Permissions, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	if !perms.IsTechnician {
		return nil, apperrors.NewPermissionDenied("only technicians and administrators may perform this action")
	}
	return perms, nil
}

// repoError maps repository sentinels onto the error taxonomy.
func repoError(err error, resource string, id int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrValueTooLong):
		return apperrors.NewValidationError(resource+" has a value that is too long", nil)
	}
	return apperrors.MapError(err)
}

// loadVisibleTicket fetches a ticket and applies the view predicate.
func loadVisibleTicket(ctx context.Context, tickets repository.TicketRepository, perms *access.Permissions, id int64, forUpdate bool) (*domain.Ticket, error) {
	var (
		ticket *domain.Ticket
		err    error
	)
	if forUpdate {
		ticket, err = tickets.GetForUpdate(ctx, id)
	} else {
		ticket, err = tickets.GetByID(ctx, id)
	}
	if err != nil {
		return nil, repoError(err, "ticket", id)
	}
	if !perms.CanView(ticket) {
		return nil, apperrors.NewPermissionDenied("you do not have access to this ticket")
	}
	return ticket, nil
}

type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

func (p publisher) publish(ctx context.Context, actor *domain.User, eventType events.EventType, ticketID int64, payload any) {
	if p.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: p.now(),
		Payload:   payload,
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.Int64("ticket_id", ticketID),
			zap.Error(err))
	}
}

func historyEntry(ticketID, actorID int64, change domain.TicketChangeType, key string, oldValue, newValue any, at time.Time) *domain.TicketHistory {
	return &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID,
		ChangeType:  change,
		OldValue:    map[string]any{key: oldValue},
		NewValue:    map[string]any{key: newValue},
		CreatedAt:   at,
	}
}

func stringPreview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
