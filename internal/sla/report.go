package sla

import (
	"sort"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RecentTicketLimit caps the recent ticket list on the dashboard.
const RecentTicketLimit = 10

// Report is a read-only dashboard snapshot.
type Report struct {
	GeneratedAt   time.Time
	ByStatus      map[domain.TicketStatus]int
	ByPriority    map[domain.TicketPriority]int
	Approaching   int
	Breached      int
	Total         int
	Open          int
	ResolvedToday int
	Recent        []domain.Ticket
}

// BuildReport folds the ticket set into summary counts as of now. The input
// slice is not modified.
func BuildReport(tickets []domain.Ticket, now time.Time) Report {
	report := Report{
		GeneratedAt: now,
		ByStatus:    make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		ByPriority:  make(map[domain.TicketPriority]int, len(domain.TicketPriorities)),
		Total:       len(tickets),
	}
	for _, s := range domain.TicketStatuses {
		report.ByStatus[s] = 0
	}
	for _, p := range domain.TicketPriorities {
		report.ByPriority[p] = 0
	}

	dayStart, dayEnd := utcDay(now)
	for i := range tickets {
		t := &tickets[i]
		report.ByStatus[t.Status]++
		report.ByPriority[t.Priority]++

		switch ClassifyTicket(t, now) {
		case Approaching:
			report.Approaching++
		case Breached:
			report.Breached++
		}

		if t.Status == domain.TicketStatusOpen {
			report.Open++
		}
		if t.Status == domain.TicketStatusResolved && t.ResolvedAt != nil &&
			!t.ResolvedAt.Before(dayStart) && t.ResolvedAt.Before(dayEnd) {
			report.ResolvedToday++
		}
	}

	report.Recent = MostRecent(tickets, RecentTicketLimit)
	return report
}

// MostRecent returns up to limit tickets ordered by creation time descending,
// newest id first on ties.
func MostRecent(tickets []domain.Ticket, limit int) []domain.Ticket {
	sorted := make([]domain.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Breaches returns non-terminal tickets past their deadline, soonest deadline first.
func Breaches(tickets []domain.Ticket, now time.Time) []domain.Ticket {
	breached := make([]domain.Ticket, 0)
	for i := range tickets {
		if ClassifyTicket(&tickets[i], now) == Breached {
			breached = append(breached, tickets[i])
		}
	}
	sort.SliceStable(breached, func(i, j int) bool {
		if !breached[i].SLADue.Equal(*breached[j].SLADue) {
			return breached[i].SLADue.Before(*breached[j].SLADue)
		}
		return breached[i].ID < breached[j].ID
	})
	return breached
}

func utcDay(now time.Time) (time.Time, time.Time) {
	u := now.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
