package handler

import (
	"net/http"

	"github.com/gdugdh24/matchcore/internal/usecase/notification"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationUseCase *notification.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *notification.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

// ListQuery binds the inbox query string
type ListQuery struct {
	PageQuery
	UnreadOnly bool `form:"unread_only"`
}

// List handles GET /notifications
// @Summary Stored notifications
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param unread_only query bool false "Only unread"
// @Param limit query int false "1..100, default 50"
// @Param offset query int false "offset"
// @Success 200 {object} notification.ListResult
// @Failure 400 {object} ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid query parameters",
		})
		return
	}

	result, err := h.notificationUseCase.List(c.Request.Context(), userID, q.UnreadOnly, q.Limit, q.Offset)
	if err != nil {
		writeDomainError(c, err, "failed to list notifications")
		return
	}

	c.JSON(http.StatusOK, result)
}

// UnreadCount handles GET /notifications/unread-count
// @Summary Unread notification count
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationUseCase.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		writeDomainError(c, err, "failed to count notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkRead handles POST /notifications/:id/read
// @Summary Mark one notification read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification id"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.notificationUseCase.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeDomainError(c, err, "failed to mark notification read")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "notification marked as read"})
}

// MarkAllRead handles POST /notifications/read-all
// @Summary Mark every notification read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	n, err := h.notificationUseCase.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		writeDomainError(c, err, "failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": n})
}
