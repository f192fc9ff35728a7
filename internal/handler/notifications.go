package handler

import (
	"net/http"

	"miscompras/internal/dto"
	"miscompras/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationsHandler struct{ svc service.NotificationService }

func NewNotificationsHandler(svc service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{svc: svc}
}

// List godoc
// @Summary Mis notificaciones
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Solo no leídas"
// @Success 200 {array} model.Notification
// @Router /v1/notifications [get]
func (h *NotificationsHandler) List(c *gin.Context) {
	resp, err := h.svc.ListMine(c.Request.Context(), actor(c).ID, c.Query("unread") == "true")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotificationsHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), actor(c).ID, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Notificacion leida"})
}

func (h *NotificationsHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), actor(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
