// Package dispatch implements the notification delivery boundary. The
// security core only needs a dispatcher to hand validated submissions to;
// real channel delivery runs behind this interface.
package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/courierd/courierd/internal/domain/service"
	"github.com/courierd/courierd/pkg/logger"
)

// LogDispatcher accepts notifications and logs them instead of delivering.
// It stands in for the queue-backed delivery workers.
type LogDispatcher struct {
	logger logger.Logger
}

var _ service.NotificationDispatcher = (*LogDispatcher)(nil)

// NewLogDispatcher creates the logging dispatcher.
func NewLogDispatcher(log logger.Logger) *LogDispatcher {
	return &LogDispatcher{logger: log.WithComponent("dispatcher")}
}

// Dispatch assigns an id and logs the accepted notification.
func (d *LogDispatcher) Dispatch(ctx context.Context, n *service.Notification) (string, error) {
	id := uuid.NewString()
	d.logger.Info(ctx, "notification accepted",
		logger.String("notification_id", id),
		logger.String("channel", n.Channel),
		logger.String("recipient", n.Recipient),
		logger.String("submitted_by", n.SubmittedBy),
	)
	return id, nil
}
