package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var got []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+string(e.Type))
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "second:"+string(e.Type))
		return nil
	})
	d.Subscribe(EventTicketReplyAdded, func(context.Context, Event) error {
		got = append(got, "unexpected")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTicketCreated, 1, "u-1", time.Now(), nil))
	require.NoError(t, err, "handler errors never reach the publisher")
	assert.Equal(t, []string{"first:ticket_created", "second:ticket_created"}, got)
}

func TestNewEventAssignsUniqueIDs(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewEvent(EventSLAPolicyChanged, 0, "admin", at, nil)
	b := NewEvent(EventSLAPolicyChanged, 0, "admin", at, nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, at, a.Timestamp)
}
