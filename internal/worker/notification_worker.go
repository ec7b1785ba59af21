package worker

import (
	"github.com/spec-kit/helpdesk/internal/service"
)

// StartNotificationWorker registers the event subscribers: notification
// stubs and the ticket audit trail.
func StartNotificationWorker(notificationService *service.NotificationService, history *service.HistoryService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if history != nil {
		history.RegisterHandlers()
	}
}
