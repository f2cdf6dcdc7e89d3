package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
)

// Enqueuer accepts mail for background delivery. It must not block.
type Enqueuer interface {
	Enqueue(msg mail.Message) bool
}

// EventRecorder counts published events.
type EventRecorder interface {
	RecordTicketEvent(eventType string)
}

// NotificationService turns ticket events into notification emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      Enqueuer
	recorder   EventRecorder
	logger     *zap.Logger
	cfg        config.MailConfig
}

// NewNotificationService creates the service. queue and recorder may be nil.
func NewNotificationService(dispatcher events.Dispatcher, queue Enqueuer, recorder EventRecorder, logger *zap.Logger, cfg config.MailConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		recorder:   recorder,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAny, n.handleAny)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketResponseAdded, n.handleTicketResponseAdded)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
}

func (n *NotificationService) handleAny(_ context.Context, event events.Event) error {
	if n.recorder != nil {
		n.recorder.RecordTicketEvent(string(event.Type))
	}
	n.logger.Debug("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("actor_id", event.Actor.UserID))
	return nil
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.enqueue(event, fmt.Sprintf("[Ticket #%d] New ticket: %s", event.TicketID, payload.Title),
		fmt.Sprintf("A new ticket was opened.\n\nTicket: #%d\nTitle: %s\nPriority: %s\nAttachments: %d\n",
			event.TicketID, payload.Title, payload.Priority, payload.FileCount))
	return nil
}

func (n *NotificationService) handleTicketAssigned(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.NewAssignee == nil {
		return nil
	}
	n.enqueue(event, fmt.Sprintf("[Ticket #%d] Assigned", event.TicketID),
		fmt.Sprintf("Ticket #%d was assigned to user #%d.\n", event.TicketID, *payload.NewAssignee))
	return nil
}

func (n *NotificationService) handleTicketResponseAdded(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketResponseAddedPayload)
	if !ok || payload.IsInternal {
		return nil
	}
	n.enqueue(event, fmt.Sprintf("[Ticket #%d] New response", event.TicketID),
		fmt.Sprintf("A new response was added to ticket #%d:\n\n%s\n", event.TicketID, payload.BodyPreview))
	return nil
}

func (n *NotificationService) handleTicketClosed(_ context.Context, event events.Event) error {
	body := fmt.Sprintf("Ticket #%d was closed.\n", event.TicketID)
	if payload, ok := event.Payload.(events.TicketClosedPayload); ok && payload.Message != "" {
		body += "\n" + payload.Message + "\n"
	}
	n.enqueue(event, fmt.Sprintf("[Ticket #%d] Closed", event.TicketID), body)
	return nil
}

// enqueue never fails the publisher: a disabled mailer, missing recipient or
// full queue only produces a log line.
func (n *NotificationService) enqueue(event events.Event, subject, text string) {
	if n.queue == nil || !n.cfg.Enabled {
		return
	}
	recipient := strings.TrimSpace(n.cfg.Recipient)
	if recipient == "" {
		n.logger.Debug("notification skipped, no recipient configured", zap.String("event_type", string(event.Type)))
		return
	}
	if !n.queue.Enqueue(mail.Message{To: []string{recipient}, Subject: subject, Text: text}) {
		n.logger.Warn("notification dropped, queue full",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID))
	}
}
