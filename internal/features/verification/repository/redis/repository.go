package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	nredis "debate-platform-backend/internal/features/notification/repository/redis"
	"debate-platform-backend/internal/features/verification/models"
	"debate-platform-backend/internal/features/verification/repository"
	"debate-platform-backend/internal/platform/redis/keys"
)

const (
	maxTxRetries    = 3
	eventsStreamLen = 10000
)

type verificationRepository struct {
	client *redis.Client
}

func NewVerificationRepository(client *redis.Client) repository.VerificationRepository {
	return &verificationRepository{client: client}
}

func (r *verificationRepository) SaveCode(ctx context.Context, userID int64, platform models.Platform, code string, ttl time.Duration) error {
	return r.client.Set(ctx, keys.VerificationCode(userID, string(platform)), code, ttl).Err()
}

func (r *verificationRepository) GetCode(ctx context.Context, userID int64, platform models.Platform) (string, error) {
	code, err := r.client.Get(ctx, keys.VerificationCode(userID, string(platform))).Result()
	if err == redis.Nil {
		return "", repository.ErrCodeNotFound
	}
	return code, err
}

func (r *verificationRepository) GetState(ctx context.Context, userID int64, platform models.Platform) (models.State, error) {
	return getState(ctx, r.client, userID, platform)
}

func getState(ctx context.Context, c redis.Cmdable, userID int64, platform models.Platform) (models.State, error) {
	raw, err := c.HGet(ctx, keys.UserVerification(userID), string(platform)).Result()
	if err == redis.Nil {
		return models.State{Status: models.StatusUnverified}, nil
	}
	if err != nil {
		return models.State{}, err
	}

	var state models.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return models.State{}, fmt.Errorf("decode verification state: %w", err)
	}
	return state, nil
}

func (r *verificationRepository) Submit(ctx context.Context, req *models.Request) error {
	stateKey := keys.UserVerification(req.UserID)

	return r.withRetry(ctx, func(tx *redis.Tx) error {
		state, err := getState(ctx, tx, req.UserID, req.Platform)
		if err != nil {
			return err
		}
		if state.Status == models.StatusVerified {
			return repository.ErrAlreadyVerified
		}

		reqJSON, err := json.Marshal(req)
		if err != nil {
			return err
		}
		submittedAt := req.SubmittedAt
		stateJSON, err := json.Marshal(models.State{
			Status:    models.StatusPending,
			Code:      req.Code,
			UpdatedAt: &submittedAt,
		})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keys.VerificationRequest(req.ID), reqJSON, 0)
			pipe.HSet(ctx, stateKey, string(req.Platform), stateJSON)
			pipe.ZAdd(ctx, keys.VerificationRequests, redis.Z{
				Score:  float64(req.SubmittedAt.UnixMilli()),
				Member: req.ID,
			})
			pipe.Del(ctx, keys.VerificationCode(req.UserID, string(req.Platform)))
			addEvent(ctx, pipe, models.EventSubmitted, req, req.SubmittedAt)
			return nil
		})
		return err
	}, stateKey, keys.VerificationRequest(req.ID))
}

func (r *verificationRepository) Approve(ctx context.Context, d repository.Decision) (*models.Request, error) {
	var approved *models.Request

	err := r.withRetry(ctx, func(tx *redis.Tx) error {
		req, err := getRequest(ctx, tx, d.RequestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return repository.ErrNotPending
		}

		at := d.At
		stateJSON, err := json.Marshal(models.State{Status: models.StatusVerified, UpdatedAt: &at})
		if err != nil {
			return err
		}

		req.Status = models.RequestApproved
		req.ReviewedAt = &at
		req.ReviewedBy = d.ReviewerID

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, keys.UserVerification(req.UserID), string(req.Platform), stateJSON)
			pipe.HSet(ctx, keys.UserSocialLinks(req.UserID), string(req.Platform), req.ProfileURL)
			if err := nredis.QueueCreate(ctx, pipe, d.Notification); err != nil {
				return err
			}
			pipe.Del(ctx, keys.VerificationRequest(req.ID))
			pipe.ZRem(ctx, keys.VerificationRequests, req.ID)
			addEvent(ctx, pipe, models.EventApproved, req, at)
			return nil
		})
		if err != nil {
			return err
		}
		approved = req
		return nil
	}, keys.VerificationRequest(d.RequestID))

	return approved, err
}

func (r *verificationRepository) Reject(ctx context.Context, d repository.Decision) (*models.Request, error) {
	var rejected *models.Request

	err := r.withRetry(ctx, func(tx *redis.Tx) error {
		req, err := getRequest(ctx, tx, d.RequestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return repository.ErrNotPending
		}

		at := d.At
		req.Status = models.RequestRejected
		req.ReviewedAt = &at
		req.ReviewedBy = d.ReviewerID
		req.Reason = d.Reason

		reqJSON, err := json.Marshal(req)
		if err != nil {
			return err
		}
		stateJSON, err := json.Marshal(models.State{Status: models.StatusRejected, UpdatedAt: &at})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := nredis.QueueCreate(ctx, pipe, d.Notification); err != nil {
				return err
			}
			pipe.Set(ctx, keys.VerificationRequest(req.ID), reqJSON, 0)
			pipe.HSet(ctx, keys.UserVerification(req.UserID), string(req.Platform), stateJSON)
			addEvent(ctx, pipe, models.EventRejected, req, at)
			return nil
		})
		if err != nil {
			return err
		}
		rejected = req
		return nil
	}, keys.VerificationRequest(d.RequestID))

	return rejected, err
}

func (r *verificationRepository) Get(ctx context.Context, id string) (*models.Request, error) {
	return getRequest(ctx, r.client, id)
}

func (r *verificationRepository) List(ctx context.Context, status models.RequestStatus) ([]*models.Request, error) {
	ids, err := r.client.ZRange(ctx, keys.VerificationRequests, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Request{}, nil
	}

	reqKeys := make([]string, len(ids))
	for i, id := range ids {
		reqKeys[i] = keys.VerificationRequest(id)
	}
	values, err := r.client.MGet(ctx, reqKeys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*models.Request, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var req models.Request
		if err := json.Unmarshal([]byte(s), &req); err != nil {
			continue
		}
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, &req)
	}
	return out, nil
}

// withRetry runs fn under WATCH and retries when a watched key changed
// between the read and EXEC.
func (r *verificationRepository) withRetry(ctx context.Context, fn func(tx *redis.Tx) error, watched ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, fn, watched...)
		if err != redis.TxFailedErr {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return repository.ErrTxConflict
}

func getRequest(ctx context.Context, c redis.Cmdable, id string) (*models.Request, error) {
	data, err := c.Get(ctx, keys.VerificationRequest(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	var req models.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode verification request: %w", err)
	}
	return &req, nil
}

func addEvent(ctx context.Context, pipe redis.Pipeliner, typ models.EventType, req *models.Request, at time.Time) {
	event := models.Event{
		Type:      typ,
		RequestID: req.ID,
		UserID:    req.UserID,
		Platform:  req.Platform,
		Status:    req.Status,
		At:        at,
	}
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: keys.VerificationEvents,
		MaxLen: eventsStreamLen,
		Approx: true,
		Values: event.Values(),
	})
}
