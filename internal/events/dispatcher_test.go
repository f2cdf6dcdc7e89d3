package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "created:"+string(e.Type))
		return nil
	})
	d.Subscribe(EventTicketClosed, func(_ context.Context, e Event) error {
		got = append(got, "closed:"+string(e.Type))
		return nil
	})
	d.Subscribe(EventAny, func(_ context.Context, e Event) error {
		got = append(got, "any:"+string(e.Type))
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: 1}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketDeleted, TicketID: 1}))

	assert.Equal(t, []string{
		"created:ticket_created",
		"any:ticket_created",
		"any:ticket_deleted",
	}, got)
}

func TestDispatcherRunsEveryHandlerAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	errFirst := errors.New("first")
	errSecond := errors.New("second")
	calls := 0
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls++
		return errFirst
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls++
		return errSecond
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketAssigned})
	require.Error(t, err)
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errSecond)
	assert.Equal(t, 2, calls)
}

func TestDispatcherRecoversPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	reached := false
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		panic("smtp exploded")
	})
	d.Subscribe(EventAny, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketClosed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp exploded")
	assert.True(t, reached)
}
