package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"debate-platform-backend/internal/common/pagination"
	"debate-platform-backend/internal/features/notification/models"
	"debate-platform-backend/internal/features/notification/repository"
	"debate-platform-backend/internal/platform/redis/keys"
)

type notificationRepository struct {
	client *redis.Client
}

func NewNotificationRepository(client *redis.Client) repository.NotificationRepository {
	return &notificationRepository{client: client}
}

// QueueCreate adds the writes of a new notification to pipe. Used inside
// the transactions of other features so the notification commits with them.
func QueueCreate(ctx context.Context, pipe redis.Pipeliner, n *models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	pipe.Set(ctx, keys.Notification(n.UserID, n.ID), data, 0)
	pipe.ZAdd(ctx, keys.Notifications(n.UserID), redis.Z{
		Score:  float64(n.CreatedAt.UnixMilli()),
		Member: n.ID,
	})
	if !n.Read {
		pipe.SAdd(ctx, keys.UnreadNotifications(n.UserID), n.ID)
	}
	return nil
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return QueueCreate(ctx, pipe, n)
	})
	return err
}

func (r *notificationRepository) Get(ctx context.Context, userID int64, id string) (*models.Notification, error) {
	data, err := r.client.Get(ctx, keys.Notification(userID, id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}

	var n models.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns newest first.
func (r *notificationRepository) List(ctx context.Context, userID int64, unreadOnly bool, p pagination.Params) ([]*models.Notification, int, error) {
	ids, err := r.client.ZRevRange(ctx, keys.Notifications(userID), 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}

	if unreadOnly {
		unread, err := r.client.SMembers(ctx, keys.UnreadNotifications(userID)).Result()
		if err != nil {
			return nil, 0, err
		}
		set := make(map[string]struct{}, len(unread))
		for _, id := range unread {
			set[id] = struct{}{}
		}
		filtered := ids[:0]
		for _, id := range ids {
			if _, ok := set[id]; ok {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}

	total := len(ids)
	start := p.Offset()
	if start >= total {
		return []*models.Notification{}, total, nil
	}
	end := start + p.Limit
	if end > total {
		end = total
	}

	docKeys := make([]string, 0, end-start)
	for _, id := range ids[start:end] {
		docKeys = append(docKeys, keys.Notification(userID, id))
	}
	values, err := r.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, 0, err
	}

	items := make([]*models.Notification, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var n models.Notification
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			continue
		}
		items = append(items, &n)
	}
	return items, total, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return r.client.SCard(ctx, keys.UnreadNotifications(userID)).Result()
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID int64, id string) error {
	key := keys.Notification(userID, id)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return repository.ErrNotificationNotFound
		}
		if err != nil {
			return err
		}

		var n models.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		if n.Read {
			return nil
		}
		n.Read = true
		updated, err := json.Marshal(&n)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.SRem(ctx, keys.UnreadNotifications(userID), id)
			return nil
		})
		return err
	}, key)
}

// MarkAllRead returns how many notifications changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	ids, err := r.client.SMembers(ctx, keys.UnreadNotifications(userID)).Result()
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, id := range ids {
		err := r.MarkRead(ctx, userID, id)
		if err == repository.ErrNotificationNotFound {
			r.client.SRem(ctx, keys.UnreadNotifications(userID), id)
			continue
		}
		if err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}
