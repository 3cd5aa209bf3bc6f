// internal/repository/postgres/notification_repository.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"talenthub-service/internal/domain/notification"
	xerrors "talenthub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (company_id, title, message, type, metadata, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	var metadataJSON []byte
	var err error
	if n.Metadata != nil {
		metadataJSON, err = json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	err = r.db.QueryRow(
		ctx, query,
		n.CompanyID, n.Title, n.Message, n.Type, metadataJSON, n.ExpiresAt,
	).Scan(&n.ID, &n.CreatedAt)

	return err
}

// FindByID retrieves a notification by ID
func (r *NotificationRepository) FindByID(ctx context.Context, id int64) (*notification.Notification, error) {
	query := `
		SELECT id, company_id, title, message, type, metadata, is_read, created_at, read_at, expires_at
		FROM notifications
		WHERE id = $1
	`

	var n notification.Notification
	var metadataJSON []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.CompanyID, &n.Title, &n.Message, &n.Type,
		&metadataJSON, &n.IsRead, &n.CreatedAt, &n.ReadAt, &n.ExpiresAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &n.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &n, nil
}

// GetCompanyNotifications retrieves notifications for a company with filters
func (r *NotificationRepository) GetCompanyNotifications(ctx context.Context, companyID int64, filters *notification.NotificationListFilters) ([]notification.Notification, int64, error) {
	conditions := []string{"company_id = $1"}
	args := []interface{}{companyID}
	argPos := 2

	// Filter out expired notifications
	conditions = append(conditions, "(expires_at IS NULL OR expires_at > NOW())")

	if filters.IsRead != nil {
		conditions = append(conditions, fmt.Sprintf("is_read = $%d", argPos))
		args = append(args, *filters.IsRead)
		argPos++
	}

	if filters.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", whereClause)
	var total int64
	err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	offset := (filters.Page - 1) * filters.PageSize
	limit := filters.PageSize

	query := fmt.Sprintf(`
		SELECT id, company_id, title, message, type, metadata, is_read, created_at, read_at, expires_at
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []notification.Notification{}
	for rows.Next() {
		var n notification.Notification
		var metadataJSON []byte

		err := rows.Scan(
			&n.ID, &n.CompanyID, &n.Title, &n.Message, &n.Type,
			&metadataJSON, &n.IsRead, &n.CreatedAt, &n.ReadAt, &n.ExpiresAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &n.Metadata); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		notifications = append(notifications, n)
	}

	return notifications, total, nil
}

// MarkAsRead marks a notification as read
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id int64, companyID int64) error {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE id = $2 AND company_id = $3 AND is_read = false
	`

	result, err := r.db.Exec(ctx, query, time.Now(), id, companyID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// MarkAllAsRead marks all notifications as read for a company
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, companyID int64) error {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE company_id = $2 AND is_read = false
	`

	_, err := r.db.Exec(ctx, query, time.Now(), companyID)
	return err
}

// GetUnreadCount gets the count of unread notifications
func (r *NotificationRepository) GetUnreadCount(ctx context.Context, companyID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE company_id = $1 AND is_read = false AND (expires_at IS NULL OR expires_at > NOW())
	`

	var count int
	err := r.db.QueryRow(ctx, query, companyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}

	return count, nil
}

// GetSummary gets a read/unread summary for a company
func (r *NotificationRepository) GetSummary(ctx context.Context, companyID int64) (*notification.NotificationSummary, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_read = false) AS unread,
			COUNT(*) FILTER (WHERE is_read = true) AS read,
			COUNT(*) AS total
		FROM notifications
		WHERE company_id = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`

	var s notification.NotificationSummary
	err := r.db.QueryRow(ctx, query, companyID).Scan(&s.TotalUnread, &s.TotalRead, &s.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification summary: %w", err)
	}

	return &s, nil
}

// DeleteExpired removes notifications past their expiry.
func (r *NotificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= NOW()`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}

	return result.RowsAffected(), nil
}
