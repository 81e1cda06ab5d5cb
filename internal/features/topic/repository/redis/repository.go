package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"debate-platform-backend/internal/features/topic/models"
	"debate-platform-backend/internal/features/topic/repository"
	"debate-platform-backend/internal/platform/redis/keys"
)

const maxTxRetries = 3

// Документы лежат в хэше topics, уникальность имени держит хэш topics:names,
// а zset topics:by_name с нулевыми весами даёт лексикографический порядок.
type topicRepository struct {
	client *redis.Client
}

func NewTopicRepository(client *redis.Client) repository.TopicRepository {
	return &topicRepository{client: client}
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func orderMember(t *models.Topic) string {
	return foldName(t.Name) + "\x00" + t.ID
}

func (r *topicRepository) Create(ctx context.Context, topic *models.Topic) error {
	data, err := json.Marshal(topic)
	if err != nil {
		return err
	}
	name := foldName(topic.Name)

	return r.withRetry(ctx, func(tx *redis.Tx) error {
		taken, err := tx.HExists(ctx, keys.TopicNames, name).Result()
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrDuplicateName
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, keys.Topics, topic.ID, data)
			pipe.HSet(ctx, keys.TopicNames, name, topic.ID)
			pipe.ZAdd(ctx, keys.TopicsByName, redis.Z{Score: 0, Member: orderMember(topic)})
			return nil
		})
		return err
	}, keys.TopicNames)
}

func (r *topicRepository) Get(ctx context.Context, id string) (*models.Topic, error) {
	return getTopic(ctx, r.client, id)
}

func getTopic(ctx context.Context, c redis.Cmdable, id string) (*models.Topic, error) {
	data, err := c.HGet(ctx, keys.Topics, id).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}

	var topic models.Topic
	if err := json.Unmarshal(data, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepository) Update(ctx context.Context, topic *models.Topic) error {
	data, err := json.Marshal(topic)
	if err != nil {
		return err
	}
	newName := foldName(topic.Name)

	return r.withRetry(ctx, func(tx *redis.Tx) error {
		current, err := getTopic(ctx, tx, topic.ID)
		if err != nil {
			return err
		}
		oldName := foldName(current.Name)

		if newName != oldName {
			owner, err := tx.HGet(ctx, keys.TopicNames, newName).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			if err == nil && owner != topic.ID {
				return repository.ErrDuplicateName
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, keys.Topics, topic.ID, data)
			if newName != oldName {
				pipe.HDel(ctx, keys.TopicNames, oldName)
				pipe.HSet(ctx, keys.TopicNames, newName, topic.ID)
				pipe.ZRem(ctx, keys.TopicsByName, orderMember(current))
				pipe.ZAdd(ctx, keys.TopicsByName, redis.Z{Score: 0, Member: orderMember(topic)})
			}
			return nil
		})
		return err
	}, keys.Topics, keys.TopicNames)
}

func (r *topicRepository) Delete(ctx context.Context, id string) error {
	return r.withRetry(ctx, func(tx *redis.Tx) error {
		current, err := getTopic(ctx, tx, id)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, keys.Topics, id)
			pipe.HDel(ctx, keys.TopicNames, foldName(current.Name))
			pipe.ZRem(ctx, keys.TopicsByName, orderMember(current))
			return nil
		})
		return err
	}, keys.Topics, keys.TopicNames)
}

func (r *topicRepository) ListByName(ctx context.Context) ([]*models.Topic, error) {
	members, err := r.client.ZRange(ctx, keys.TopicsByName, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []*models.Topic{}, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		if i := strings.LastIndexByte(m, 0); i >= 0 {
			ids = append(ids, m[i+1:])
		}
	}

	values, err := r.client.HMGet(ctx, keys.Topics, ids...).Result()
	if err != nil {
		return nil, err
	}

	topics := make([]*models.Topic, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var topic models.Topic
		if err := json.Unmarshal([]byte(s), &topic); err != nil {
			continue
		}
		topics = append(topics, &topic)
	}
	return topics, nil
}

func (r *topicRepository) withRetry(ctx context.Context, fn func(tx *redis.Tx) error, watched ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, fn, watched...)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return repository.ErrTxConflict
}
