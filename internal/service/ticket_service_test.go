package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/sla"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type ticketFixture struct {
	store      *repository.MemoryStore
	clock      *fakeClock
	dispatcher *recordingDispatcher
	tickets    *TicketService
	policies   *SLAService
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := &fakeClock{now: t0}
	dispatcher := &recordingDispatcher{}

	policies := NewSLAService(SLADependencies{
		PolicyRepo: store.Policies(),
		TicketRepo: store.Tickets(),
		Dispatcher: dispatcher,
		Now:        clock.Now,
	})
	tickets := NewTicketService(TicketDependencies{
		TicketRepo: store.Tickets(),
		ReplyRepo:  store.Replies(),
		Resolver:   sla.NewResolver(store.Policies()),
		Dispatcher: dispatcher,
		Now:        clock.Now,
	})
	return &ticketFixture{store: store, clock: clock, dispatcher: dispatcher, tickets: tickets, policies: policies}
}

func (f *ticketFixture) seedPolicies(t *testing.T) {
	t.Helper()
	n, err := f.policies.SeedDefaults(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

var agent = domain.Identity{UserID: "agent-1", Email: "agent@example.com", Role: domain.RoleAgent}

func createInput(priority domain.TicketPriority) TicketCreateInput {
	return TicketCreateInput{
		Subject:       "Cannot log in",
		Description:   "Password reset link expired",
		Priority:      priority,
		Category:      domain.TicketCategoryAccount,
		CustomerEmail: "customer@example.com",
	}
}

func TestCreateTicketStampsDeadline(t *testing.T) {
	f := newTicketFixture(t)
	f.seedPolicies(t)

	view, err := f.tickets.CreateTicket(context.Background(), agent, createInput(domain.TicketPriorityHigh))
	require.NoError(t, err)

	require.NotNil(t, view.Ticket.SLADue)
	assert.True(t, view.Ticket.SLADue.Equal(t0.Add(12*time.Hour)), "high policy gives 12h")
	assert.Equal(t, domain.TicketStatusOpen, view.Ticket.Status)
	assert.Equal(t, "agent-1", view.Ticket.CreatorID)
	assert.Equal(t, sla.OnTrack, view.SLAStatus)
	assert.Nil(t, view.Ticket.ResolvedAt)
	published := f.dispatcher.types()
	assert.Equal(t, events.EventTicketCreated, published[len(published)-1])
}

func TestCreateTicketWithoutPolicyHasNoDeadline(t *testing.T) {
	f := newTicketFixture(t)

	view, err := f.tickets.CreateTicket(context.Background(), agent, createInput(domain.TicketPriorityLow))
	require.NoError(t, err)
	assert.Nil(t, view.Ticket.SLADue)
	assert.Equal(t, sla.NotApplicable, view.SLAStatus)

	// Adding a policy later never backfills existing tickets.
	_, err = f.policies.CreatePolicy(context.Background(), agent, PolicyInput{Name: "Low", Priority: domain.TicketPriorityLow, ResponseHours: 24, ResolutionHours: 72, Active: true})
	require.NoError(t, err)

	detail, err := f.tickets.GetTicket(context.Background(), view.Ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Ticket.SLADue)
	assert.Equal(t, sla.NotApplicable, detail.SLAStatus)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture(t)

	tests := []struct {
		name   string
		mutate func(*TicketCreateInput)
	}{
		{name: "missing subject", mutate: func(in *TicketCreateInput) { in.Subject = "  " }},
		{name: "missing description", mutate: func(in *TicketCreateInput) { in.Description = "" }},
		{name: "missing email", mutate: func(in *TicketCreateInput) { in.CustomerEmail = "" }},
		{name: "malformed email", mutate: func(in *TicketCreateInput) { in.CustomerEmail = "nobody" }},
		{name: "unknown priority", mutate: func(in *TicketCreateInput) { in.Priority = "critical" }},
		{name: "unknown category", mutate: func(in *TicketCreateInput) { in.Category = "hardware" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := createInput(domain.TicketPriorityMedium)
			tt.mutate(&in)
			_, err := f.tickets.CreateTicket(context.Background(), agent, in)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
		})
	}

	all, err := f.tickets.ListTickets(context.Background(), TicketListInput{})
	require.NoError(t, err)
	assert.Empty(t, all, "rejected input leaves no ticket behind")
}

func TestUrgentTicketClassificationOverTime(t *testing.T) {
	f := newTicketFixture(t)
	f.seedPolicies(t)
	ctx := context.Background()

	view, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityUrgent))
	require.NoError(t, err)
	require.True(t, view.Ticket.SLADue.Equal(t0.Add(4*time.Hour)))

	steps := []struct {
		at   time.Duration
		want sla.Classification
	}{
		{at: time.Hour, want: sla.OnTrack},
		{at: 3*time.Hour + 59*time.Minute, want: sla.Approaching},
		{at: 4*time.Hour + time.Minute, want: sla.Breached},
	}
	for _, step := range steps {
		f.clock.now = t0.Add(step.at)
		detail, err := f.tickets.GetTicket(ctx, view.Ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, detail.SLAStatus, "at +%s", step.at)
	}
}

func TestEditPriorityKeepsDeadline(t *testing.T) {
	f := newTicketFixture(t)
	f.seedPolicies(t)
	ctx := context.Background()

	view, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityLow))
	require.NoError(t, err)
	original := *view.Ticket.SLADue
	assert.True(t, original.Equal(t0.Add(72*time.Hour)))

	f.clock.Advance(time.Hour)
	edited, err := f.tickets.EditTicket(ctx, agent, view.Ticket.ID, TicketEditInput{
		Subject:     "Cannot log in (escalated)",
		Description: view.Ticket.Description,
		Status:      domain.TicketStatusInProgress,
		Priority:    domain.TicketPriorityUrgent,
		Category:    view.Ticket.Category,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityUrgent, edited.Ticket.Priority)
	assert.True(t, edited.Ticket.SLADue.Equal(original), "deadline stays fixed at creation")
	assert.True(t, edited.Ticket.UpdatedAt.Equal(t0.Add(time.Hour)))
	assert.True(t, edited.Ticket.CreatedAt.Equal(t0))
}

func TestEditIntoResolvedStampsResolvedAt(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	view, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityLow))
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	edited, err := f.tickets.EditTicket(ctx, agent, view.Ticket.ID, TicketEditInput{
		Subject:     view.Ticket.Subject,
		Description: view.Ticket.Description,
		Status:      domain.TicketStatusResolved,
		Priority:    view.Ticket.Priority,
		Category:    view.Ticket.Category,
	})
	require.NoError(t, err)
	require.NotNil(t, edited.Ticket.ResolvedAt)
	assert.True(t, edited.Ticket.ResolvedAt.Equal(t0.Add(30*time.Minute)))
	assert.Contains(t, f.dispatcher.types(), events.EventTicketStatusChanged)
}

func TestEditUnknownTicket(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.tickets.EditTicket(context.Background(), agent, 404, TicketEditInput{
		Subject:     "x",
		Description: "y",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityLow,
		Category:    domain.TicketCategoryOther,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestResolveIsRepeatableAndRefreshesResolvedAt(t *testing.T) {
	f := newTicketFixture(t)
	f.seedPolicies(t)
	ctx := context.Background()

	view, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityMedium))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	first, err := f.tickets.ResolveTicket(ctx, agent, view.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, first.Ticket.Status)
	assert.Equal(t, sla.NotApplicable, first.SLAStatus)
	assert.True(t, first.Ticket.ResolvedAt.Equal(t0.Add(time.Hour)))

	f.clock.Advance(time.Hour)
	second, err := f.tickets.ResolveTicket(ctx, agent, view.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, second.Ticket.Status)
	assert.True(t, second.Ticket.ResolvedAt.Equal(t0.Add(2*time.Hour)))
	assert.True(t, second.Ticket.SLADue.Equal(*view.Ticket.SLADue))

	statusEvents := 0
	for _, typ := range f.dispatcher.types() {
		if typ == events.EventTicketStatusChanged {
			statusEvents++
		}
	}
	assert.Equal(t, 1, statusEvents, "re-resolving is not a status change")
}

func TestCloseWithoutResolve(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	view, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityMedium))
	require.NoError(t, err)

	closed, err := f.tickets.CloseTicket(ctx, agent, view.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Ticket.Status)
	assert.Nil(t, closed.Ticket.ResolvedAt)
	assert.Equal(t, sla.NotApplicable, closed.SLAStatus)

	reopened, err := f.tickets.ResolveTicket(ctx, agent, view.Ticket.ID)
	require.NoError(t, err, "resolve is allowed from closed")
	assert.Equal(t, domain.TicketStatusResolved, reopened.Ticket.Status)

	_, err = f.tickets.CloseTicket(ctx, agent, 9999)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAddReply(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	view, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityMedium))
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	reply, err := f.tickets.AddReply(ctx, agent, view.Ticket.ID, TicketReplyInput{Content: "Looking into it"})
	require.NoError(t, err)
	assert.Equal(t, "agent@example.com", reply.Author)

	f.clock.Advance(5 * time.Minute)
	_, err = f.tickets.AddReply(ctx, agent, view.Ticket.ID, TicketReplyInput{Author: "Tier 2", Content: "Escalated", IsInternal: true})
	require.NoError(t, err)

	detail, err := f.tickets.GetTicket(ctx, view.Ticket.ID)
	require.NoError(t, err)
	require.Len(t, detail.Replies, 2)
	assert.Equal(t, "Looking into it", detail.Replies[0].Content)
	assert.Equal(t, "Tier 2", detail.Replies[1].Author)
	assert.True(t, detail.Replies[1].IsInternal)
	assert.Equal(t, domain.TicketStatusOpen, detail.Ticket.Status, "replies never change status")
	assert.True(t, detail.Ticket.UpdatedAt.Equal(t0.Add(10*time.Minute)))

	_, err = f.tickets.AddReply(ctx, agent, 404, TicketReplyInput{Content: "hello"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.tickets.AddReply(ctx, agent, view.Ticket.ID, TicketReplyInput{Content: "   "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestListTicketsSortedByDeadline(t *testing.T) {
	f := newTicketFixture(t)
	f.seedPolicies(t)
	ctx := context.Background()

	_, err := f.policies.UpdatePolicy(ctx, agent, 4, PolicyInput{Name: "Low", Priority: domain.TicketPriorityLow, ResponseHours: 24, ResolutionHours: 72, Active: false})
	require.NoError(t, err)

	low, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityLow))
	require.NoError(t, err)
	high, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityHigh))
	require.NoError(t, err)
	urgent, err := f.tickets.CreateTicket(ctx, agent, createInput(domain.TicketPriorityUrgent))
	require.NoError(t, err)

	views, err := f.tickets.ListTickets(ctx, TicketListInput{Sort: repository.SortSLADue})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, []int64{urgent.Ticket.ID, high.Ticket.ID, low.Ticket.ID},
		[]int64{views[0].Ticket.ID, views[1].Ticket.ID, views[2].Ticket.ID}, "tickets without a deadline sort last")
}

type failingTickets struct {
	repository.TicketRepository
}

func (failingTickets) List(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, errors.New("connection refused")
}

func TestListTicketsStorageFailure(t *testing.T) {
	svc := NewTicketService(TicketDependencies{TicketRepo: failingTickets{}})
	_, err := svc.ListTickets(context.Background(), TicketListInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorage))
}

func TestStringPreviewCutsOnRuneBoundaries(t *testing.T) {
	tests := []struct {
		body string
		max  int
		want string
	}{
		{body: "  short  ", max: 10, want: "short"},
		{body: "ünïcödé-text", max: 8, want: "ünïcö..."},
		{body: "日本語のチケット", max: 5, want: "日本..."},
		{body: "日本語", max: 3, want: "日本語"},
		{body: "ééééé", max: 2, want: "éé"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got := stringPreview(tt.body, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.max)
		})
	}
}
