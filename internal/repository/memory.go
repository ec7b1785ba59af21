package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// MemoryStore is an in-memory implementation of every repository. A single
// mutex serializes all access, so each call is atomic.
type MemoryStore struct {
	mu          sync.RWMutex
	tickets     map[int64]*domain.Ticket
	replies     map[int64][]domain.TicketReply
	policies    map[int64]*domain.SLAPolicy
	suggestions map[int64]*domain.Suggestion
	history     map[int64][]domain.TicketHistory

	nextTicketID     int64
	nextReplyID      int64
	nextPolicyID     int64
	nextSuggestionID int64
	nextHistoryID    int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:          make(map[int64]*domain.Ticket),
		replies:          make(map[int64][]domain.TicketReply),
		policies:         make(map[int64]*domain.SLAPolicy),
		suggestions:      make(map[int64]*domain.Suggestion),
		history:          make(map[int64][]domain.TicketHistory),
		nextTicketID:     1,
		nextReplyID:      1,
		nextPolicyID:     1,
		nextSuggestionID: 1,
		nextHistoryID:    1,
	}
}

// Tickets returns the ticket repository view.
func (s *MemoryStore) Tickets() TicketRepository { return memoryTickets{s} }

// Replies returns the reply repository view.
func (s *MemoryStore) Replies() TicketReplyRepository { return memoryReplies{s} }

// Policies returns the SLA policy repository view.
func (s *MemoryStore) Policies() SLAPolicyRepository { return memoryPolicies{s} }

// Suggestions returns the suggestion repository view.
func (s *MemoryStore) Suggestions() SuggestionRepository { return memorySuggestions{s} }

// History returns the ticket audit trail view.
func (s *MemoryStore) History() TicketHistoryRepository { return memoryHistory{s} }

type memoryTickets struct{ s *MemoryStore }

func (m memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	ticket.ID = m.s.nextTicketID
	m.s.nextTicketID++
	m.s.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (m memoryTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	ticket, ok := m.s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (m memoryTickets) Mutate(_ context.Context, id int64, fn TicketMutation) (*domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := cloneTicket(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = id
	m.s.tickets[id] = cloneTicket(working)
	return working, nil
}

func (m memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	m.s.mu.RLock()
	result := make([]domain.Ticket, 0, len(m.s.tickets))
	for _, t := range m.s.tickets {
		if !matchesFilter(t, filter) {
			continue
		}
		result = append(result, *cloneTicket(t))
	}
	m.s.mu.RUnlock()

	SortTickets(result, filter.Sort)

	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		end := offset + filter.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, nil
}

// SortTickets orders tickets the same way the Postgres repository does.
func SortTickets(tickets []domain.Ticket, by TicketSort) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		switch by {
		case SortPriority:
			if a.Priority.Rank() != b.Priority.Rank() {
				return a.Priority.Rank() > b.Priority.Rank()
			}
			return newerFirst(a, b)
		case SortSLADue:
			switch {
			case a.SLADue == nil && b.SLADue == nil:
				return a.ID < b.ID
			case a.SLADue == nil:
				return false
			case b.SLADue == nil:
				return true
			case !a.SLADue.Equal(*b.SLADue):
				return a.SLADue.Before(*b.SLADue)
			}
			return a.ID < b.ID
		default:
			return newerFirst(a, b)
		}
	})
}

func newerFirst(a, b domain.Ticket) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func matchesFilter(t *domain.Ticket, filter TicketFilter) bool {
	if len(filter.Statuses) > 0 && !contains(filter.Statuses, t.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !contains(filter.Priorities, t.Priority) {
		return false
	}
	if len(filter.Categories) > 0 && !contains(filter.Categories, t.Category) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

type memoryReplies struct{ s *MemoryStore }

func (m memoryReplies) Append(_ context.Context, reply *domain.TicketReply) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	ticket, ok := m.s.tickets[reply.TicketID]
	if !ok {
		return ErrNotFound
	}
	if reply.CreatedAt.After(ticket.UpdatedAt) {
		ticket.UpdatedAt = reply.CreatedAt
	}
	reply.ID = m.s.nextReplyID
	m.s.nextReplyID++
	m.s.replies[reply.TicketID] = append(m.s.replies[reply.TicketID], *reply)
	return nil
}

func (m memoryReplies) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketReply, error) {
	m.s.mu.RLock()
	result := append([]domain.TicketReply{}, m.s.replies[ticketID]...)
	m.s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

type memoryPolicies struct{ s *MemoryStore }

func (m memoryPolicies) Create(_ context.Context, policy *domain.SLAPolicy) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	policy.ID = m.s.nextPolicyID
	m.s.nextPolicyID++
	stored := *policy
	m.s.policies[policy.ID] = &stored
	return nil
}

func (m memoryPolicies) Update(_ context.Context, policy *domain.SLAPolicy) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	existing, ok := m.s.policies[policy.ID]
	if !ok {
		return ErrNotFound
	}
	policy.CreatedAt = existing.CreatedAt
	stored := *policy
	m.s.policies[policy.ID] = &stored
	return nil
}

func (m memoryPolicies) GetByID(_ context.Context, id int64) (*domain.SLAPolicy, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	policy, ok := m.s.policies[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *policy
	return &result, nil
}

func (m memoryPolicies) List(_ context.Context) ([]domain.SLAPolicy, error) {
	m.s.mu.RLock()
	result := make([]domain.SLAPolicy, 0, len(m.s.policies))
	for _, p := range m.s.policies {
		result = append(result, *p)
	}
	m.s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m memoryPolicies) ListActiveByPriority(_ context.Context, priority domain.TicketPriority) ([]domain.SLAPolicy, error) {
	m.s.mu.RLock()
	result := []domain.SLAPolicy{}
	for _, p := range m.s.policies {
		if p.Active && p.Priority == priority {
			result = append(result, *p)
		}
	}
	m.s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

type memorySuggestions struct{ s *MemoryStore }

func (m memorySuggestions) Create(_ context.Context, suggestion *domain.Suggestion) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.tickets[suggestion.TicketID]; !ok {
		return ErrNotFound
	}
	suggestion.ID = m.s.nextSuggestionID
	m.s.nextSuggestionID++
	stored := *suggestion
	m.s.suggestions[suggestion.ID] = &stored
	return nil
}

func (m memorySuggestions) GetByID(_ context.Context, id int64) (*domain.Suggestion, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	s, ok := m.s.suggestions[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *s
	return &result, nil
}

func (m memorySuggestions) List(_ context.Context, ticketID *int64) ([]domain.Suggestion, error) {
	m.s.mu.RLock()
	result := []domain.Suggestion{}
	for _, s := range m.s.suggestions {
		if ticketID != nil && s.TicketID != *ticketID {
			continue
		}
		result = append(result, *s)
	}
	m.s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].GeneratedAt.Equal(result[j].GeneratedAt) {
			return result[i].GeneratedAt.After(result[j].GeneratedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m memorySuggestions) MarkAccepted(_ context.Context, id int64) (*domain.Suggestion, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	s, ok := m.s.suggestions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Accepted = true
	result := *s
	return &result, nil
}

type memoryHistory struct{ s *MemoryStore }

func (m memoryHistory) Create(_ context.Context, history *domain.TicketHistory) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.tickets[history.TicketID]; !ok {
		return ErrNotFound
	}
	history.ID = m.s.nextHistoryID
	m.s.nextHistoryID++
	m.s.history[history.TicketID] = append(m.s.history[history.TicketID], *history)
	return nil
}

func (m memoryHistory) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	entries := m.s.history[ticketID]
	result := make([]domain.TicketHistory, len(entries))
	copy(result, entries)
	return result, nil
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	c.AssignedTo = cloneString(t.AssignedTo)
	c.CustomerName = cloneString(t.CustomerName)
	c.SLADue = cloneTime(t.SLADue)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
