package repository

import (
	"context"
	"errors"

	"debate-platform-backend/internal/features/topic/models"
)

var (
	ErrTopicNotFound = errors.New("topic not found")
	ErrDuplicateName = errors.New("topic name already taken")
	ErrTxConflict    = errors.New("transaction conflict")
)

type TopicRepository interface {
	Create(ctx context.Context, topic *models.Topic) error
	Get(ctx context.Context, id string) (*models.Topic, error)
	Update(ctx context.Context, topic *models.Topic) error
	Delete(ctx context.Context, id string) error
	// ListByName returns every topic ordered by case-folded name.
	ListByName(ctx context.Context) ([]*models.Topic, error)
}
