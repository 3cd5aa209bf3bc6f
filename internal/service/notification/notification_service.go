// internal/service/notification/notification_service.go
package notification

import (
	"context"
	"fmt"
	"time"

	"talenthub-service/internal/domain/notification"
	"talenthub-service/internal/domain/websocket"
	"talenthub-service/internal/repository/postgres"
	ws "talenthub-service/internal/websocket"

	"go.uber.org/zap"
)

// NotificationService handles notification business logic
type NotificationService struct {
	repo   *postgres.NotificationRepository
	hub    *ws.Hub
	logger *zap.Logger
}

func NewNotificationService(repo *postgres.NotificationRepository, hub *ws.Hub, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		hub:    hub,
		logger: logger,
	}
}

// CreateAndPush creates a notification and pushes it via WebSocket
func (s *NotificationService) CreateAndPush(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	n := &notification.Notification{
		CompanyID: req.CompanyID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		Metadata:  req.Metadata,
	}

	if req.Type == "" {
		n.Type = notification.TypeInfo
	}

	if req.ExpiresAt != nil {
		n.ExpiresAt.Time = *req.ExpiresAt
		n.ExpiresAt.Valid = true
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.pushToWebSocket(n)

	return n, nil
}

// GetByID retrieves a notification by ID, verifying ownership
func (s *NotificationService) GetByID(ctx context.Context, id int64, companyID int64) (*notification.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if n.CompanyID != companyID {
		return nil, fmt.Errorf("notification not found")
	}

	return n, nil
}

// GetCompanyNotifications retrieves notifications for a company with filters
func (s *NotificationService) GetCompanyNotifications(ctx context.Context, companyID int64, filters *notification.NotificationListFilters) (*notification.NotificationListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	notifications, total, err := s.repo.GetCompanyNotifications(ctx, companyID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	summary, err := s.repo.GetSummary(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &notification.NotificationListResponse{
		Notifications: notifications,
		Summary:       *summary,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
		TotalPages:    totalPages,
	}, nil
}

// MarkAsRead marks a notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, id int64, companyID int64) error {
	if err := s.repo.MarkAsRead(ctx, id, companyID); err != nil {
		return fmt.Errorf("failed to mark as read: %w", err)
	}

	// Push notification count update via WebSocket
	count, err := s.repo.GetUnreadCount(ctx, companyID)
	if err != nil {
		s.logger.Warn("failed to get unread count", zap.Error(err))
	} else if s.hub != nil {
		s.hub.BroadcastNotificationCount(companyID, count)
	}

	return nil
}

// MarkAllAsRead marks all notifications as read for a company
func (s *NotificationService) MarkAllAsRead(ctx context.Context, companyID int64) error {
	if err := s.repo.MarkAllAsRead(ctx, companyID); err != nil {
		return fmt.Errorf("failed to mark all as read: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastNotificationCount(companyID, 0)
	}

	return nil
}

// GetUnreadCount gets the count of unread notifications
func (s *NotificationService) GetUnreadCount(ctx context.Context, companyID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, companyID)
}

// GetSummary gets notification summary for a company
func (s *NotificationService) GetSummary(ctx context.Context, companyID int64) (*notification.NotificationSummary, error) {
	return s.repo.GetSummary(ctx, companyID)
}

// DeleteExpiredNotifications deletes expired notifications, run by the daily
// sweep.
func (s *NotificationService) DeleteExpiredNotifications(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("deleted expired notifications", zap.Int64("count", deleted))
	}
	return deleted, nil
}

// Alert helpers used by the reconciliation sweeps and the approval workflow.
// Callers treat failures here as non-fatal.

// SendLowCreditsAlert tells a company one of its lots is nearly drained.
func (s *NotificationService) SendLowCreditsAlert(ctx context.Context, companyID int64, creditType string, remaining int) error {
	_, err := s.CreateAndPush(ctx, &notification.CreateNotificationRequest{
		CompanyID: companyID,
		Title:     notification.TitleLowCredits,
		Message:   fmt.Sprintf("You have %d %s credit(s) remaining. Purchase a package or upgrade your plan to keep boosting jobs.", remaining, creditType),
		Type:      notification.TypeAlert,
		Metadata: map[string]interface{}{
			"credit_type": creditType,
			"remaining":   remaining,
		},
	})
	return err
}

// SendCreditsExpiringAlert warns that unused credits will be destroyed.
func (s *NotificationService) SendCreditsExpiringAlert(ctx context.Context, companyID int64, creditType string, amount int, expiresAt time.Time) error {
	_, err := s.CreateAndPush(ctx, &notification.CreateNotificationRequest{
		CompanyID: companyID,
		Title:     notification.TitleCreditsExpiring,
		Message:   fmt.Sprintf("%d %s credit(s) expire on %s. Unused credits are not refunded.", amount, creditType, expiresAt.Format("2 Jan 2006")),
		Type:      notification.TypeAlert,
		Metadata: map[string]interface{}{
			"credit_type": creditType,
			"amount":      amount,
			"expires_at":  expiresAt,
		},
	})
	return err
}

// SendRenewalUpcoming tells a company its subscription renews soon.
func (s *NotificationService) SendRenewalUpcoming(ctx context.Context, companyID int64, planName string, renewsAt time.Time) error {
	_, err := s.CreateAndPush(ctx, &notification.CreateNotificationRequest{
		CompanyID: companyID,
		Title:     notification.TitleRenewalUpcoming,
		Message:   fmt.Sprintf("Your %s subscription renews on %s.", planName, renewsAt.Format("2 Jan 2006")),
		Type:      notification.TypeInfo,
		Metadata: map[string]interface{}{
			"plan_name": planName,
			"renews_at": renewsAt,
		},
	})
	return err
}

// SendRequestResolved tells a company its plan or package request was
// approved or rejected.
func (s *NotificationService) SendRequestResolved(ctx context.Context, companyID int64, requestID int64, kind string, approved bool) error {
	title := notification.TitleRequestApproved
	message := fmt.Sprintf("Your %s request has been approved.", kind)
	if !approved {
		title = notification.TitleRequestRejected
		message = fmt.Sprintf("Your %s request has been rejected. Contact support for details.", kind)
	}

	_, err := s.CreateAndPush(ctx, &notification.CreateNotificationRequest{
		CompanyID: companyID,
		Title:     title,
		Message:   message,
		Type:      notification.TypeInfo,
		Metadata: map[string]interface{}{
			"request_id": requestID,
			"kind":       kind,
			"approved":   approved,
		},
	})
	return err
}

// pushToWebSocket pushes notification to connected clients
func (s *NotificationService) pushToWebSocket(n *notification.Notification) {
	if s.hub == nil || !s.hub.IsConnected(n.CompanyID) {
		return
	}

	wsData := &websocket.NotificationData{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}

	s.hub.BroadcastNotification(n.CompanyID, wsData)
}
