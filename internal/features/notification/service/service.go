package service

import (
	"context"

	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/features/notification/models"
	"debate-platform-backend/internal/features/notification/repository"
)

type NotificationService interface {
	List(ctx context.Context, userID int64, unreadOnly bool, p pagination.Params) (pagination.Page[*models.Notification], error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID int64, id string) error
	MarkAllRead(ctx context.Context, userID int64) (int, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, userID int64, unreadOnly bool, p pagination.Params) (pagination.Page[*models.Notification], error) {
	p = p.Normalize()
	items, total, err := s.repo.List(ctx, userID, unreadOnly, p)
	if err != nil {
		return pagination.Page[*models.Notification]{}, errors.NewPersistenceError("list notifications", err)
	}
	return pagination.NewPage(items, total, p), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, errors.NewPersistenceError("count unread notifications", err)
	}
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID int64, id string) error {
	err := s.repo.MarkRead(ctx, userID, id)
	if err == repository.ErrNotificationNotFound {
		return errors.NewNotFoundError("notification", id)
	}
	if err != nil {
		return errors.NewPersistenceError("mark notification read", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return n, errors.NewPersistenceError("mark all notifications read", err)
	}
	return n, nil
}
