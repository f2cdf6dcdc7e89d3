package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

func TestNotificationWorkerDeliversTicketMail(t *testing.T) {
	sender := &recordingSender{}
	queue := NewMailQueue(sender, zap.NewNop(), nil, 1, 4)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, queue, nil, zap.NewNop(), config.MailConfig{
		Enabled:   true,
		Recipient: "support@example.com",
	})

	stop := StartNotificationWorker(context.Background(), queue, notifications)
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCreated,
		TicketID: 7,
		Payload:  events.TicketCreatedPayload{Title: "Disk full"},
	}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: 7,
	}))
	stop()

	require.Equal(t, 1, sender.count())
	assert.Equal(t, "[Ticket #7] New ticket: Disk full", sender.sent[0].Subject)
	assert.Equal(t, []string{"support@example.com"}, sender.sent[0].To)
}

func TestNotificationWorkerToleratesMissingParts(t *testing.T) {
	stop := StartNotificationWorker(context.Background(), nil, nil)
	assert.NotPanics(t, stop)
}
