package repository

import (
	"context"
	"errors"

	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/features/notification/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	Get(ctx context.Context, userID int64, id string) (*models.Notification, error)
	List(ctx context.Context, userID int64, unreadOnly bool, p pagination.Params) ([]*models.Notification, int, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID int64, id string) error
	MarkAllRead(ctx context.Context, userID int64) (int, error)
}
