package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketReplyAdded, n.handleTicketReplyAdded)
	n.dispatcher.Subscribe(events.EventSLAPolicyChanged, n.handleSLAPolicyChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketUpdated", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketReplyAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketReplyAdded", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.TicketReplyAddedPayload); ok && payload.IsInternal {
		return nil
	}
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSLAPolicyChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("SLAPolicyChanged", zap.String("actor_id", event.ActorID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
