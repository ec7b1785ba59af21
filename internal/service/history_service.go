package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// HistoryService records an audit trail of ticket changes from published
// events and serves it back per ticket.
type HistoryService struct {
	dispatcher events.Dispatcher
	history    repository.TicketHistoryRepository
	tickets    repository.TicketRepository
	logger     *zap.Logger
}

// NewHistoryService creates the service.
func NewHistoryService(dispatcher events.Dispatcher, history repository.TicketHistoryRepository, tickets repository.TicketRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{dispatcher: dispatcher, history: history, tickets: tickets, logger: logger}
}

// RegisterHandlers subscribes to ticket change events.
func (h *HistoryService) RegisterHandlers() {
	if h.dispatcher == nil {
		return
	}
	h.dispatcher.Subscribe(events.EventTicketStatusChanged, h.handleStatusChanged)
	h.dispatcher.Subscribe(events.EventTicketUpdated, h.handleTicketUpdated)
}

// ForTicket lists a ticket's history oldest first.
func (h *HistoryService) ForTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	if _, err := h.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, h.storageFailure("load ticket", err)
	}
	entries, err := h.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, h.storageFailure("list ticket history", err)
	}
	return entries, nil
}

func (h *HistoryService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	return h.record(ctx, event, domain.ChangeTypeStatus,
		map[string]any{"status": string(payload.OldStatus)},
		map[string]any{"status": string(payload.NewStatus)})
}

func (h *HistoryService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return nil
	}
	if payload.OldPriority != payload.NewPriority {
		if err := h.record(ctx, event, domain.ChangeTypePriority,
			map[string]any{"priority": string(payload.OldPriority)},
			map[string]any{"priority": string(payload.NewPriority)}); err != nil {
			return err
		}
	}
	if !sameOptional(payload.OldAssignedTo, payload.AssignedTo) {
		return h.record(ctx, event, domain.ChangeTypeAssignee,
			map[string]any{"assigned_to": optionalValue(payload.OldAssignedTo)},
			map[string]any{"assigned_to": optionalValue(payload.AssignedTo)})
	}
	return nil
}

func (h *HistoryService) record(ctx context.Context, event events.Event, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	at := event.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	entry := &domain.TicketHistory{
		TicketID:   event.TicketID,
		ChangedBy:  event.ActorID,
		ChangeType: change,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  at,
	}
	if err := h.history.Create(ctx, entry); err != nil {
		return err
	}
	h.logger.Debug("ticket history recorded", zap.Int64("ticket_id", entry.TicketID), zap.String("change", string(change)))
	return nil
}

func (h *HistoryService) storageFailure(op string, err error) error {
	h.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return apperrors.NewStorageError(op, err)
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optionalValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
