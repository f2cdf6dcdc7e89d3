package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
)

type fakeQueue struct {
	mu     sync.Mutex
	accept bool
	msgs   []mail.Message
}

func (q *fakeQueue) Enqueue(msg mail.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.accept {
		return false
	}
	q.msgs = append(q.msgs, msg)
	return true
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordTicketEvent(eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[eventType]++
}

func publishAll(t *testing.T, d events.Dispatcher, evts ...events.Event) {
	t.Helper()
	for _, e := range evts {
		e.Timestamp = time.Now()
		require.NoError(t, d.Publish(context.Background(), e))
	}
}

func TestNotificationsEnqueueMail(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	queue := &fakeQueue{accept: true}
	recorder := &countingRecorder{counts: map[string]int{}}
	svc := NewNotificationService(dispatcher, queue, recorder, nil, config.MailConfig{Enabled: true, Recipient: "suporte@aurum.com"})
	svc.RegisterHandlers()

	actor := events.Actor{UserID: 1, Role: domain.RoleTechnician}
	publishAll(t, dispatcher,
		events.Event{Type: events.EventTicketCreated, TicketID: 7, Actor: actor, Payload: events.TicketCreatedPayload{Title: "Printer down", Priority: domain.TicketPriorityMedium}},
		events.Event{Type: events.EventTicketResponseAdded, TicketID: 7, Actor: actor, Payload: events.TicketResponseAddedPayload{IsInternal: true, BodyPreview: "secret"}},
		events.Event{Type: events.EventTicketResponseAdded, TicketID: 7, Actor: actor, Payload: events.TicketResponseAddedPayload{BodyPreview: "on my way"}},
		events.Event{Type: events.EventTicketClosed, TicketID: 7, Actor: actor, Payload: events.TicketClosedPayload{Message: "done"}},
		events.Event{Type: events.EventTicketUpdated, TicketID: 7, Actor: actor, Payload: events.TicketUpdatedPayload{Fields: []string{"title"}}},
	)

	require.Len(t, queue.msgs, 3)
	assert.Equal(t, []string{"suporte@aurum.com"}, queue.msgs[0].To)
	assert.Contains(t, queue.msgs[0].Subject, "Printer down")
	assert.Contains(t, queue.msgs[1].Text, "on my way")
	assert.Contains(t, queue.msgs[2].Text, "done")
	for _, m := range queue.msgs {
		assert.NotContains(t, m.Text, "secret")
	}
	assert.Equal(t, 2, recorder.counts[string(events.EventTicketResponseAdded)])
	assert.Equal(t, 1, recorder.counts[string(events.EventTicketUpdated)])
}

func TestNotificationsNeverFailThePublisher(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	full := &fakeQueue{accept: false}
	NewNotificationService(dispatcher, full, nil, nil, config.MailConfig{Enabled: true, Recipient: "suporte@aurum.com"}).RegisterHandlers()

	publishAll(t, dispatcher, events.Event{Type: events.EventTicketClosed, TicketID: 1})
	assert.Empty(t, full.msgs)

	disabled := &fakeQueue{accept: true}
	other := events.NewInMemoryDispatcher()
	NewNotificationService(other, disabled, nil, nil, config.MailConfig{Enabled: false, Recipient: "suporte@aurum.com"}).RegisterHandlers()
	publishAll(t, other, events.Event{Type: events.EventTicketClosed, TicketID: 1})
	assert.Empty(t, disabled.msgs)
}

func TestTicketMutationsReachTheMailQueue(t *testing.T) {
	f := newFixture(t)
	dispatcher := events.NewInMemoryDispatcher()
	queue := &fakeQueue{accept: true}
	NewNotificationService(dispatcher, queue, nil, nil, config.MailConfig{Enabled: true, Recipient: "suporte@aurum.com"}).RegisterHandlers()
	f.tickets.events.dispatcher = dispatcher

	f.openTicket(t, f.user)
	require.Len(t, queue.msgs, 1)
	assert.Contains(t, queue.msgs[0].Subject, "New ticket")
}
