package controllers

import (
	"net/http"

	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// NotificationController serves the caller's notification inbox.
type NotificationController struct {
	notificationService services.NotificationService
}

func NewNotificationController(notificationService services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

// ListNotifications handles GET /api/notifications?unread=true.
func (nc *NotificationController) ListNotifications(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	list, svcErr := nc.notificationService.ListMyNotifications(ctx.Request.Context(), p, ctx.Query("unread") == "true", parsePaginationParams(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, list)
}

// MarkRead handles PUT /api/notifications/:id/read.
func (nc *NotificationController) MarkRead(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	if svcErr := nc.notificationService.MarkRead(ctx.Request.Context(), p, ctx.Param("id")); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (nc *NotificationController) MarkAllRead(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	updated, svcErr := nc.notificationService.MarkAllRead(ctx.Request.Context(), p)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"updated": updated})
}
