package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/common/validation"
	"debate-platform-backend/internal/features/topic/models"
	"debate-platform-backend/internal/features/topic/repository"
)

// Actor is the caller of a mutating operation.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

type TopicService interface {
	Search(ctx context.Context, p pagination.Params) (pagination.Page[*models.Topic], error)
	Get(ctx context.Context, id string) (*models.Topic, error)
	Create(ctx context.Context, actor Actor, in models.TopicInput) (*models.Topic, error)
	Update(ctx context.Context, actor Actor, id string, in models.TopicPatch) (*models.Topic, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type topicService struct {
	repo  repository.TopicRepository
	nowFn func() time.Time
	idFn  func() string
}

func NewTopicService(repo repository.TopicRepository) TopicService {
	return &topicService{repo: repo, nowFn: time.Now, idFn: uuid.NewString}
}

func (s *topicService) Search(ctx context.Context, p pagination.Params) (pagination.Page[*models.Topic], error) {
	p = p.Normalize()
	all, err := s.repo.ListByName(ctx)
	if err != nil {
		return pagination.Page[*models.Topic]{}, errors.NewPersistenceError("list topics", err)
	}

	if search := strings.ToLower(p.Search); search != "" {
		filtered := all[:0]
		for _, t := range all {
			if strings.Contains(strings.ToLower(t.Name), search) {
				filtered = append(filtered, t)
			}
		}
		all = filtered
	}
	return pagination.Slice(all, p), nil
}

func (s *topicService) Get(ctx context.Context, id string) (*models.Topic, error) {
	topic, err := s.repo.Get(ctx, id)
	if err == repository.ErrTopicNotFound {
		return nil, errors.NewNotFoundError("topic", id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get topic", err)
	}
	return topic, nil
}

func (s *topicService) Create(ctx context.Context, actor Actor, in models.TopicInput) (*models.Topic, error) {
	name, desc, err := clean(in)
	if err != nil {
		return nil, err
	}

	now := s.nowFn().UTC()
	topic := &models.Topic{
		ID:          s.idFn(),
		Name:        name,
		Description: desc,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, topic); err != nil {
		return nil, mapRepoError(err, "create topic", name)
	}
	return topic, nil
}

// Update applies a partial change; a nil field keeps the stored value.
func (s *topicService) Update(ctx context.Context, actor Actor, id string, in models.TopicPatch) (*models.Topic, error) {
	topic, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, topic) {
		return nil, errors.NewForbiddenError("only the author or an admin can change a topic")
	}

	merged := models.TopicInput{Name: topic.Name, Description: topic.Description}
	if in.Name != nil {
		merged.Name = *in.Name
	}
	if in.Description != nil {
		merged.Description = *in.Description
	}
	name, desc, err := clean(merged)
	if err != nil {
		return nil, err
	}

	topic.Name = name
	topic.Description = desc
	topic.UpdatedAt = s.nowFn().UTC()
	if err := s.repo.Update(ctx, topic); err != nil {
		return nil, mapRepoError(err, "update topic", name)
	}
	return topic, nil
}

func (s *topicService) Delete(ctx context.Context, actor Actor, id string) error {
	topic, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, topic) {
		return errors.NewForbiddenError("only the author or an admin can delete a topic")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "delete topic", topic.Name)
	}
	return nil
}

func canModify(actor Actor, topic *models.Topic) bool {
	return actor.IsAdmin || actor.UserID == topic.CreatedBy
}

func clean(in models.TopicInput) (string, string, error) {
	name := validation.SanitizeText(in.Name)
	if err := validation.ValidateTopicName(name); err != nil {
		return "", "", errors.NewValidationError("name", err.Error())
	}
	desc := validation.SanitizeText(in.Description)
	if err := validation.ValidateTopicDescription(desc); err != nil {
		return "", "", errors.NewValidationError("description", err.Error())
	}
	return name, desc, nil
}

func mapRepoError(err error, op, name string) error {
	switch err {
	case repository.ErrDuplicateName:
		return errors.NewConflictError("topic", "name already taken").WithDetail("name", name)
	case repository.ErrTopicNotFound:
		return errors.New(errors.ErrCodeNotFound, "topic not found")
	case repository.ErrTxConflict:
		return errors.Wrap(err, errors.ErrCodeTransactionFailed, "Concurrent update, please retry")
	default:
		return errors.NewPersistenceError(op, err)
	}
}
