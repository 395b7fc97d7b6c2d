package worker

import (
	"github.com/spec-kit/ticket-router/internal/service"
)

// StartNotificationWorker registers notification handlers on the dispatcher
// the ticket service publishes routing and comment events to.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
