package handlers

import (
	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/sla"
)

func ticketResponse(view *service.TicketView) dto.TicketResponse {
	t := &view.Ticket
	return dto.TicketResponse{
		ID:            t.ID,
		CreatorID:     t.CreatorID,
		Subject:       t.Subject,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		Category:      string(t.Category),
		AssignedTo:    t.AssignedTo,
		CustomerEmail: t.CustomerEmail,
		CustomerName:  t.CustomerName,
		SLADue:        t.SLADue,
		SLAStatus:     string(view.SLAStatus),
		ResolvedAt:    t.ResolvedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	replies := make([]dto.ReplyResponse, 0, len(detail.Replies))
	for i := range detail.Replies {
		replies = append(replies, replyResponse(&detail.Replies[i]))
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(&detail.TicketView),
		Replies:        replies,
	}
}

func replyResponse(reply *domain.TicketReply) dto.ReplyResponse {
	return dto.ReplyResponse{
		ID:         reply.ID,
		TicketID:   reply.TicketID,
		Author:     reply.Author,
		Content:    reply.Content,
		IsInternal: reply.IsInternal,
		CreatedAt:  reply.CreatedAt,
	}
}

func historyResponse(entry *domain.TicketHistory) dto.TicketHistoryResponse {
	return dto.TicketHistoryResponse{
		ID:         entry.ID,
		ChangeType: string(entry.ChangeType),
		ChangedBy:  entry.ChangedBy,
		OldValue:   entry.OldValue,
		NewValue:   entry.NewValue,
		CreatedAt:  entry.CreatedAt,
	}
}

func policyResponse(policy *domain.SLAPolicy) dto.PolicyResponse {
	return dto.PolicyResponse{
		ID:              policy.ID,
		Name:            policy.Name,
		Priority:        string(policy.Priority),
		ResponseHours:   policy.ResponseHours,
		ResolutionHours: policy.ResolutionHours,
		Active:          policy.Active,
		CreatedAt:       policy.CreatedAt,
	}
}

func suggestionResponse(s *domain.Suggestion) dto.SuggestionResponse {
	return dto.SuggestionResponse{
		ID:             s.ID,
		TicketID:       s.TicketID,
		SuggestionType: string(s.Kind),
		Content:        s.Content,
		ModelUsed:      s.ModelUsed,
		Accepted:       s.Accepted,
		GeneratedAt:    s.GeneratedAt,
	}
}

// dashboardResponse classifies recent tickets against the report's own clock
// so the snapshot is internally consistent.
func dashboardResponse(report *sla.Report) dto.DashboardResponse {
	byStatus := make(map[string]int, len(report.ByStatus))
	for k, v := range report.ByStatus {
		byStatus[string(k)] = v
	}
	byPriority := make(map[string]int, len(report.ByPriority))
	for k, v := range report.ByPriority {
		byPriority[string(k)] = v
	}
	recent := make([]dto.TicketResponse, 0, len(report.Recent))
	for i := range report.Recent {
		view := service.TicketView{Ticket: report.Recent[i], SLAStatus: sla.ClassifyTicket(&report.Recent[i], report.GeneratedAt)}
		recent = append(recent, ticketResponse(&view))
	}
	return dto.DashboardResponse{
		GeneratedAt:   report.GeneratedAt,
		Total:         report.Total,
		Open:          report.Open,
		ResolvedToday: report.ResolvedToday,
		ByStatus:      byStatus,
		ByPriority:    byPriority,
		SLA:           dto.SLACounts{Approaching: report.Approaching, Breached: report.Breached},
		Recent:        recent,
	}
}
