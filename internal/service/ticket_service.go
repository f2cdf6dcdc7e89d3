package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const closePrefix = "Ticket closed: "

// TicketService coordinates ticket workflows.
type TicketService struct {
	store       repository.Store
	attachments *AttachmentService
	events      publisher
	logger      *zap.Logger
	now         Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store       repository.Store
	Attachments *AttachmentService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
}

// TicketCreateInput describes the ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	ServiceTypeID int64
	Priority      domain.TicketPriority
	CompanyID     *int64
	Files         []FileUpload
}

// NullableID distinguishes an absent field from an explicit null.
type NullableID struct {
	Set   bool
	Value *int64
}

// TicketPatch holds the optional fields of an update. Status, ServiceTypeID
// and AssignedTo are only applied for staff.
type TicketPatch struct {
	Title         *string
	Description   *string
	Priority      *domain.TicketPriority
	Status        *domain.TicketStatus
	ServiceTypeID *int64
	AssignedTo    NullableID
}

// ListOptions narrows a ticket listing. A zero Limit returns every visible ticket.
type ListOptions struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock.orDefault()
	return &TicketService{
		store:       deps.Store,
		attachments: deps.Attachments,
		events:      publisher{dispatcher: deps.Dispatcher, logger: logger, now: now},
		logger:      logger,
		now:         now,
	}
}

// Create opens a ticket together with any attachments. Either the ticket, its
// history entry and every file land, or nothing does.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.TicketDetails, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}

	title := cleanText(input.Title)
	description := cleanText(input.Description)
	if err := requireText(map[string]string{"title": title, "description": description}); err != nil {
		return nil, err
	}
	if err := maxRunes("title", title, MaxTitleRunes); err != nil {
		return nil, err
	}
	if input.ServiceTypeID <= 0 {
		return nil, apperrors.NewValidationError("service type is required", map[string]any{"field": "service_type_id"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, invalidPriority(priority)
	}
	companyID, err := ticketCompany(perms, input.CompanyID)
	if err != nil {
		return nil, err
	}
	if len(input.Files) > 0 {
		if s.attachments == nil {
			return nil, apperrors.NewInternalError(errors.New("attachment service not configured"))
		}
		if err := s.attachments.validateAll(input.Files); err != nil {
			return nil, err
		}
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:         title,
		Description:   description,
		Status:        domain.TicketStatusOpen,
		Priority:      priority,
		ServiceTypeID: input.ServiceTypeID,
		CompanyID:     companyID,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var written []string
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := requireActiveServiceType(ctx, repos.ServiceTypes, ticket.ServiceTypeID); err != nil {
			return err
		}
		company, err := repos.Companies.GetByID(ctx, ticket.CompanyID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewValidationError("company not found", map[string]any{"company_id": ticket.CompanyID})
			}
			return repoError(err, "company", ticket.CompanyID)
		}
		if !company.Active {
			return apperrors.NewValidationError("company is inactive", map[string]any{"company_id": ticket.CompanyID})
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return repoError(err, "ticket", 0)
		}
		created := historyEntry(ticket.ID, actor.ID, domain.ChangeTypeCreated, "status", nil, ticket.Status, now)
		if err := repos.History.Create(ctx, created); err != nil {
			return repoError(err, "ticket history", ticket.ID)
		}
		for _, file := range input.Files {
			if _, err := s.attachments.storeTx(ctx, repos, ticket.ID, actor.ID, file, &written); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if s.attachments != nil {
			s.attachments.discard(written)
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.Int64("actor_id", actor.ID))
	s.events.publish(ctx, actor, events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{
		Title:         ticket.Title,
		Priority:      ticket.Priority,
		ServiceTypeID: ticket.ServiceTypeID,
		CompanyID:     ticket.CompanyID,
		FileCount:     len(input.Files),
	})
	return s.details(ctx, ticket)
}

// Get returns a visible ticket with resolved names and its files.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID int64) (*domain.TicketDetails, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	ticket, err := loadVisibleTicket(ctx, s.store.Repositories().Tickets, perms, ticketID, false)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, ticket)
}

// List returns the tickets the actor may see, newest first.
func (s *TicketService) List(ctx context.Context, actor *domain.User, opts ListOptions) ([]domain.TicketDetails, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	for _, status := range opts.Statuses {
		if !status.Valid() {
			return nil, invalidStatus(status)
		}
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, apperrors.NewValidationError("limit and offset must not be negative", nil)
	}

	companyID, creatorID := perms.Scope()
	repos := s.store.Repositories()
	tickets, err := repos.Tickets.List(ctx, repository.TicketFilter{
		CompanyID: companyID,
		CreatorID: creatorID,
		Statuses:  opts.Statuses,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	names := newNameResolver(repos)
	out := make([]domain.TicketDetails, 0, len(tickets))
	for i := range tickets {
		d, err := names.ticket(ctx, &tickets[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// Update applies a patch. Fields the actor may not change are ignored.
func (s *TicketService) Update(ctx context.Context, actor *domain.User, ticketID int64, patch TicketPatch) (*domain.TicketDetails, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	if !perms.IsTechnician {
		patch.Status = nil
		patch.ServiceTypeID = nil
		patch.AssignedTo = NullableID{}
	}
	if err := validatePatch(&patch); err != nil {
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
		now := s.now()
		changes = ticketChanges{}

		if patch.Title != nil && *patch.Title != ticket.Title {
			ticket.Title = *patch.Title
			changes.fields = append(changes.fields, "title")
		}
		if patch.Description != nil && *patch.Description != ticket.Description {
			ticket.Description = *patch.Description
			changes.fields = append(changes.fields, "description")
		}
		if patch.Priority != nil && *patch.Priority != ticket.Priority {
			changes.add(historyEntry(ticket.ID, actor.ID, domain.ChangeTypePriority, "priority", ticket.Priority, *patch.Priority, now), "priority")
			ticket.Priority = *patch.Priority
		}
		if patch.ServiceTypeID != nil && *patch.ServiceTypeID != ticket.ServiceTypeID {
			if err := requireActiveServiceType(ctx, repos.ServiceTypes, *patch.ServiceTypeID); err != nil {
				return err
			}
			changes.add(historyEntry(ticket.ID, actor.ID, domain.ChangeTypeServiceType, "service_type_id", ticket.ServiceTypeID, *patch.ServiceTypeID, now), "service_type_id")
			ticket.ServiceTypeID = *patch.ServiceTypeID
		}
		if patch.Status != nil && *patch.Status != ticket.Status {
			if ticket.IsClosed() {
				return apperrors.NewValidationError("closed tickets cannot change status", map[string]any{"status": ticket.Status})
			}
			changes.setStatus(ticket, *patch.Status, actor.ID, now)
		}
		if patch.AssignedTo.Set {
			assignee, err := resolveAssignee(ctx, repos.Users, patch.AssignedTo.Value)
			if err != nil {
				return err
			}
			changes.assign(ticket, assignee, actor.ID, now, patch.Status == nil)
		}

		ticket.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return repoError(err, "ticket", ticket.ID)
		}
		return changes.persist(ctx, repos.History)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, actor, events.EventTicketUpdated, ticket.ID, events.TicketUpdatedPayload{Fields: changes.fields})
	changes.publish(ctx, s.events, actor, ticket.ID)
	return s.details(ctx, ticket)
}

// Close moves a ticket to the terminal state. A non-empty message is stored as
// a public response in the same transaction.
func (s *TicketService) Close(ctx context.Context, actor *domain.User, ticketID int64, message string) (*domain.TicketDetails, error) {
	perms, err := requireStaff(actor)
	if err != nil {
		return nil, err
	}
	message = cleanText(message)

	var ticket *domain.Ticket
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err = loadVisibleTicket(ctx, repos.Tickets, perms, ticketID, true)
		if err != nil {
			return err
		}
		if ticket.IsClosed() {
			return apperrors.NewValidationError("ticket is already closed", map[string]any{"ticket_id": ticket.ID})
		}
		now := s.now()
		if message != "" {
			response := &domain.TicketResponse{
				TicketID:  ticket.ID,
				AuthorID:  actor.ID,
				Message:   closePrefix + message,
				CreatedAt: now,
			}
			if err := repos.Responses.Create(ctx, response); err != nil {
				return repoError(err, "response", 0)
			}
		}
		var changes ticketChanges
		changes.setStatus(ticket, domain.TicketStatusClosed, actor.ID, now)
		ticket.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return repoError(err, "ticket", ticket.ID)
		}
		return changes.persist(ctx, repos.History)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket closed", zap.Int64("ticket_id", ticket.ID), zap.Int64("actor_id", actor.ID))
	s.events.publish(ctx, actor, events.EventTicketClosed, ticket.ID, events.TicketClosedPayload{Message: message})
	return s.details(ctx, ticket)
}

// Delete removes a ticket with its responses, files and history. Stored bytes
// are removed after commit.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, ticketID int64) error {
	perms, err := permissionsFor(actor)
	if err != nil {
		return err
	}

	var stored []string
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return repoError(err, "ticket", ticketID)
		}
		if !perms.CanDelete(ticket) {
			return apperrors.NewPermissionDenied("only administrators or the ticket creator may delete this ticket")
		}
		files, err := repos.Files.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return repoError(err, "file", 0)
		}
		for _, f := range files {
			stored = append(stored, f.StoredName)
		}
		if err := repos.Files.DeleteByTicket(ctx, ticket.ID); err != nil {
			return repoError(err, "file", 0)
		}
		if err := repos.Responses.DeleteByTicket(ctx, ticket.ID); err != nil {
			return repoError(err, "response", 0)
		}
		if err := repos.History.DeleteByTicket(ctx, ticket.ID); err != nil {
			return repoError(err, "ticket history", 0)
		}
		return repoError(repos.Tickets.Delete(ctx, ticket.ID), "ticket", ticket.ID)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	if s.attachments != nil {
		s.attachments.discard(stored)
	}
	s.logger.Info("ticket deleted", zap.Int64("ticket_id", ticketID), zap.Int64("actor_id", actor.ID))
	s.events.publish(ctx, actor, events.EventTicketDeleted, ticketID, nil)
	return nil
}

// AddResponse appends a message to the ticket thread. Only staff may post
// internal notes; a staff response on an open ticket starts work on it.
func (s *TicketService) AddResponse(ctx context.Context, actor *domain.User, ticketID int64, message string, internal bool) (*domain.ResponseDetails, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	message = cleanText(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}

	var (
		ticket   *domain.Ticket
		response *domain.TicketResponse
		changes  ticketChanges
	)
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err = loadVisibleTicket(ctx, repos.Tickets, perms, ticketID, true)
		if err != nil {
			return err
		}
		now := s.now()
		response = &domain.TicketResponse{
			TicketID:   ticket.ID,
			AuthorID:   actor.ID,
			Message:    message,
			IsInternal: internal && perms.IsTechnician,
			CreatedAt:  now,
		}
		if err := repos.Responses.Create(ctx, response); err != nil {
			return repoError(err, "response", 0)
		}
		if perms.IsTechnician && ticket.Status == domain.TicketStatusOpen {
			changes.setStatus(ticket, domain.TicketStatusInProgress, actor.ID, now)
		}
		ticket.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return repoError(err, "ticket", ticket.ID)
		}
		return changes.persist(ctx, repos.History)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, actor, events.EventTicketResponseAdded, ticket.ID, events.TicketResponseAddedPayload{
		ResponseID:  response.ID,
		IsInternal:  response.IsInternal,
		BodyPreview: stringPreview(response.Message, 120),
	})
	changes.publish(ctx, s.events, actor, ticket.ID)
	return &domain.ResponseDetails{TicketResponse: *response, AuthorName: actor.Name, AuthorRole: actor.Role}, nil
}

// ListResponses returns the thread oldest first. Internal notes are omitted
// for non-staff.
func (s *TicketService) ListResponses(ctx context.Context, actor *domain.User, ticketID int64) ([]domain.ResponseDetails, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	if _, err := loadVisibleTicket(ctx, repos.Tickets, perms, ticketID, false); err != nil {
		return nil, err
	}
	responses, err := repos.Responses.ListByTicket(ctx, ticketID, perms.IsTechnician)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	names := newNameResolver(repos)
	out := make([]domain.ResponseDetails, 0, len(responses))
	for _, r := range responses {
		author, err := names.user(ctx, r.AuthorID)
		if err != nil {
			return nil, err
		}
		d := domain.ResponseDetails{TicketResponse: r}
		if author != nil {
			d.AuthorName = author.Name
			d.AuthorRole = author.Role
		}
		out = append(out, d)
	}
	return out, nil
}

// Stats counts visible tickets by status.
func (s *TicketService) Stats(ctx context.Context, actor *domain.User) (*domain.TicketStats, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	companyID, creatorID := perms.Scope()
	counts, err := s.store.Repositories().Tickets.CountByStatus(ctx, repository.TicketFilter{
		CompanyID: companyID,
		CreatorID: creatorID,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats := &domain.TicketStats{
		Open:       counts[domain.TicketStatusOpen],
		InProgress: counts[domain.TicketStatusInProgress],
		Closed:     counts[domain.TicketStatusClosed],
	}
	stats.Total = stats.Open + stats.InProgress + stats.Closed
	return stats, nil
}

// ListHistory returns the audit trail of a visible ticket.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.User, ticketID int64) ([]domain.TicketHistory, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	if _, err := loadVisibleTicket(ctx, repos.Tickets, perms, ticketID, false); err != nil {
		return nil, err
	}
	entries, err := repos.History.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) details(ctx context.Context, ticket *domain.Ticket) (*domain.TicketDetails, error) {
	return ticketDetails(ctx, s.store.Repositories(), ticket)
}

// ticketCompany decides the owning company. Regular users always file under
// their own company; staff may name one and fall back to their own.
func ticketCompany(perms *access.Permissions, requested *int64) (int64, error) {
	if perms.IsTechnician && requested != nil {
		if *requested <= 0 {
			return 0, apperrors.NewValidationError("company_id must be positive", map[string]any{"field": "company_id"})
		}
		return *requested, nil
	}
	if perms.CompanyID == nil {
		return 0, apperrors.NewValidationError("user is not linked to a company", map[string]any{"field": "company_id"})
	}
	return *perms.CompanyID, nil
}

func validatePatch(patch *TicketPatch) error {
	if patch.Title != nil {
		title := cleanText(*patch.Title)
		if title == "" {
			return apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
		}
		if err := maxRunes("title", title, MaxTitleRunes); err != nil {
			return err
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		description := cleanText(*patch.Description)
		if description == "" {
			return apperrors.NewValidationError("description must not be empty", map[string]any{"field": "description"})
		}
		patch.Description = &description
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return invalidPriority(*patch.Priority)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return invalidStatus(*patch.Status)
	}
	return nil
}

func requireText(fields map[string]string) error {
	for _, name := range []string{"title", "description"} {
		if v, ok := fields[name]; ok && v == "" {
			return apperrors.NewValidationError(name+" is required", map[string]any{"field": name})
		}
	}
	return nil
}

func requireActiveServiceType(ctx context.Context, repo repository.ServiceTypeRepository, id int64) error {
	serviceType, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("service type not found", map[string]any{"service_type_id": id})
		}
		return repoError(err, "service type", id)
	}
	if !serviceType.Active {
		return apperrors.NewValidationError("service type is inactive", map[string]any{"service_type_id": id})
	}
	return nil
}

func invalidPriority(p domain.TicketPriority) error {
	return apperrors.NewValidationError("invalid priority", map[string]any{
		"priority": p,
		"allowed": []domain.TicketPriority{
			domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent,
		},
	})
}

func invalidStatus(st domain.TicketStatus) error {
	return apperrors.NewValidationError("invalid status", map[string]any{
		"status":  st,
		"allowed": []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusClosed},
	})
}
