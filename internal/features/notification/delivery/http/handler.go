package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debate-platform-backend/internal/common/middleware"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/features/notification/models"
	"debate-platform-backend/internal/features/notification/service"
)

type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(service service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterRoutes expects an authenticated group.
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/read-all", h.MarkAllRead)
		notifications.POST("/:id/read", h.MarkRead)
	}
}

// @Summary List notifications
// @Description Newest first. unread=true returns only unread notifications.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Param unread query bool false "Only unread"
// @Success 200 {object} pagination.Page[models.Notification]
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	params, err := pagination.FromQuery(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), middleware.CurrentUserID(c), c.Query("unread") == "true", params)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Unread notifications count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UnreadCount
// @Failure 401 {object} middleware.ErrorResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, models.UnreadCount{Count: n})
}

// @Summary Mark notification as read
// @Tags notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.service.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}
