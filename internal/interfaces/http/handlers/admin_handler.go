package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/courierd/courierd/internal/application/dto"
	"github.com/courierd/courierd/internal/application/service"
	"github.com/courierd/courierd/internal/interfaces/http/middleware"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/errors"
)

// AdminHandler serves the key management and audit query endpoints. Every
// route behind it requires the admin keys scope.
type AdminHandler struct {
	keys  service.APIKeyAppService
	audit service.AuditQueryService
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(keys service.APIKeyAppService, audit service.AuditQueryService) *AdminHandler {
	return &AdminHandler{keys: keys, audit: audit}
}

// CreateKey provisions a new API key. The response is the only place the
// plaintext credential ever appears.
func (h *AdminHandler) CreateKey(c *gin.Context) {
	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest("invalid request body").WithCause(err))
		return
	}

	resp, err := h.keys.CreateKey(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// DeleteKey soft-deactivates a key. The record and its audit trail survive,
// and the admin key that performed the deactivation is recorded as the actor.
func (h *AdminHandler) DeleteKey(c *gin.Context) {
	var actorID string
	if actor, ok := middleware.KeyFromContext(c); ok {
		actorID = actor.ID
	}
	if err := h.keys.DeactivateKey(c.Request.Context(), c.Param("id"), actorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetKey returns the sanitized view of one key.
func (h *AdminHandler) GetKey(c *gin.Context) {
	view, err := h.keys.GetKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListKeys returns the sanitized views of an organization's keys.
func (h *AdminHandler) ListKeys(c *gin.Context) {
	orgID := c.Query("organization_id")
	views, err := h.keys.ListKeys(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": views, "count": len(views)})
}

// CleanupKeys triggers an immediate expired-key sweep.
func (h *AdminHandler) CleanupKeys(c *gin.Context) {
	count, err := h.keys.CleanupExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, &dto.CleanupResponse{Deactivated: count})
}

// RecentEvents returns the newest audit entries, optionally filtered by the
// comma-separated types parameter.
func (h *AdminHandler) RecentEvents(c *gin.Context) {
	limit := queryInt(c, "limit", constants.DefaultAuditQueryLimit)

	var types []constants.SecurityEventType
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, constants.SecurityEventType(t))
			}
		}
	}

	resp, err := h.audit.RecentEvents(c.Request.Context(), limit, types)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// KeyEvents returns the newest audit entries referencing one key.
func (h *AdminHandler) KeyEvents(c *gin.Context) {
	limit := queryInt(c, "limit", constants.DefaultAuditQueryLimit)

	resp, err := h.audit.EventsByKey(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SuspiciousSummary returns the aggregated failure signals of a recent
// window, 24 hours by default.
func (h *AdminHandler) SuspiciousSummary(c *gin.Context) {
	windowHours := queryInt(c, "window_hours", 24)

	summary, err := h.audit.SuspiciousSummary(c.Request.Context(), windowHours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
