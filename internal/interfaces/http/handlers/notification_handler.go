package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainService "github.com/courierd/courierd/internal/domain/service"
	"github.com/courierd/courierd/internal/interfaces/http/middleware"
	"github.com/courierd/courierd/pkg/errors"
	"github.com/courierd/courierd/pkg/logger"
)

// NotificationHandler serves the protected notification submission route.
type NotificationHandler struct {
	dispatcher domainService.NotificationDispatcher
	logger     logger.Logger
}

// NewNotificationHandler creates the notification handler.
func NewNotificationHandler(dispatcher domainService.NotificationDispatcher, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		logger:     log.WithComponent("notification_handler"),
	}
}

// Submit accepts a notification for asynchronous delivery. The route is
// guarded by the API key middleware; by the time this runs the key has
// passed every validation stage.
func (h *NotificationHandler) Submit(c *gin.Context) {
	var n domainService.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		respondError(c, errors.ErrInvalidRequest("invalid notification payload").WithCause(err))
		return
	}

	key, ok := middleware.KeyFromContext(c)
	if !ok {
		// The middleware always sets the key; reaching here means a route
		// was wired without it.
		respondError(c, errors.ErrAuthError())
		return
	}
	n.SubmittedBy = key.ID

	id, err := h.dispatcher.Dispatch(c.Request.Context(), &n)
	if err != nil {
		h.logger.Error(c.Request.Context(), "dispatch failed", err,
			logger.String("channel", n.Channel),
			logger.String("key_id", key.ID),
		)
		respondError(c, errors.ErrInternal("failed to accept notification"))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     id,
		"status": "accepted",
	})
}
