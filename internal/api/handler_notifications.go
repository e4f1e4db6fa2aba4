package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListNotifications handles GET /api/notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := h.store.ListNotifications(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkNotificationRead handles PATCH /api/notifications/:id/read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.store.MarkNotificationRead(c.Request.Context(), id, p.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
