// internal/handlers/notification/notification_handler.go
package notification

import (
	"errors"
	"net/http"
	"strconv"

	notifdomain "talenthub-service/internal/domain/notification"
	"talenthub-service/internal/middleware"
	xerrors "talenthub-service/internal/pkg/errors"
	"talenthub-service/internal/pkg/response"
	notifservice "talenthub-service/internal/service/notification"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService *notifservice.NotificationService
}

func NewNotificationHandler(notificationService *notifservice.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GetNotifications returns the caller's notifications with pagination and
// optional read/type filters.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	var filters notifdomain.NotificationListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	notifications, err := h.notificationService.GetCompanyNotifications(c.Request.Context(), companyID, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get notifications", err)
		return
	}

	response.Success(c, http.StatusOK, "notifications retrieved", notifications)
}

// GetNotification returns one of the caller's notifications by ID.
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	notificationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid notification ID", err)
		return
	}

	notification, err := h.notificationService.GetByID(c.Request.Context(), notificationID, companyID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "notification not found", err)
		return
	}

	response.Success(c, http.StatusOK, "notification retrieved", notification)
}

// MarkAsRead marks a single notification as read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	notificationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid notification ID", err)
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), notificationID, companyID); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "notification not found or already read")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to mark notification as read", err)
		return
	}

	response.Success(c, http.StatusOK, "notification marked as read", nil)
}

// MarkAllAsRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	if err := h.notificationService.MarkAllAsRead(c.Request.Context(), companyID); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to mark notifications as read", err)
		return
	}

	response.Success(c, http.StatusOK, "all notifications marked as read", nil)
}

// GetUnreadCount returns the caller's unread notification count.
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	count, err := h.notificationService.GetUnreadCount(c.Request.Context(), companyID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get unread count", err)
		return
	}

	response.Success(c, http.StatusOK, "unread count retrieved", gin.H{"unread_count": count})
}

// GetSummary returns read/unread totals for the caller.
func (h *NotificationHandler) GetSummary(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	summary, err := h.notificationService.GetSummary(c.Request.Context(), companyID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get notification summary", err)
		return
	}

	response.Success(c, http.StatusOK, "notification summary retrieved", summary)
}
