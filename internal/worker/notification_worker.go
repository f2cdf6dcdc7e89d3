package worker

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker starts the mail workers and subscribes the
// notification handlers to ticket events. The returned function stops
// accepting mail and waits for queued messages to drain.
func StartNotificationWorker(ctx context.Context, queue *MailQueue, notificationService *service.NotificationService) func() {
	if queue != nil {
		queue.Start(ctx)
	}
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	return func() {
		if queue != nil {
			queue.Stop()
		}
	}
}
