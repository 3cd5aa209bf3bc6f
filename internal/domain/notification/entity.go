// internal/domain/notification/entity.go
package notification

import (
	"database/sql"
	"time"
)

type NotificationType string

const (
	TypeSystem NotificationType = "system"
	TypeAlert  NotificationType = "alert"
	TypeInfo   NotificationType = "info"
)

// Well-known notification titles emitted by the reconciliation sweeps.
const (
	TitleLowCredits      = "Credits running low"
	TitleCreditsExpiring = "Credits expiring soon"
	TitleRenewalUpcoming = "Subscription renewal upcoming"
	TitleRequestApproved = "Request approved"
	TitleRequestRejected = "Request rejected"
)

type Notification struct {
	ID        int64                  `json:"id" db:"id"`
	CompanyID int64                  `json:"company_id" db:"company_id"`
	Title     string                 `json:"title" db:"title"`
	Message   string                 `json:"message" db:"message"`
	Type      NotificationType       `json:"type" db:"type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	IsRead    bool                   `json:"is_read" db:"is_read"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	ReadAt    sql.NullTime           `json:"read_at,omitempty" db:"read_at"`
	ExpiresAt sql.NullTime           `json:"expires_at,omitempty" db:"expires_at"`
}

// DTOs

type CreateNotificationRequest struct {
	CompanyID int64                  `json:"company_id" binding:"required"`
	Title     string                 `json:"title" binding:"required,max=255"`
	Message   string                 `json:"message" binding:"required"`
	Type      NotificationType       `json:"type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
}

type NotificationListFilters struct {
	IsRead   *bool             `form:"is_read"`
	Type     *NotificationType `form:"type"`
	Page     int               `form:"page"`
	PageSize int               `form:"page_size"`
}

type NotificationSummary struct {
	TotalUnread int `json:"total_unread"`
	TotalRead   int `json:"total_read"`
	Total       int `json:"total"`
}

type NotificationListResponse struct {
	Notifications []Notification      `json:"notifications"`
	Summary       NotificationSummary `json:"summary"`
	Total         int64               `json:"total"`
	Page          int                 `json:"page"`
	PageSize      int                 `json:"page_size"`
	TotalPages    int                 `json:"total_pages"`
}
