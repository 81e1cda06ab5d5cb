package workers

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"debate-platform-backend/internal/common/broadcast"
	"debate-platform-backend/internal/common/cache"
	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/features/verification/models"
	"debate-platform-backend/internal/platform/redis/keys"
)

const (
	groupPrefix  = "verification_workers"
	readBlock    = 5 * time.Second
	readCount    = 16
	errorBackoff = time.Second

	// pushRetryEvery is how often unacked entries with a failed push are
	// read back from this consumer's pending list.
	pushRetryEvery  = 30 * time.Second
	maxPushAttempts = 5
)

// VerificationEventWorker reads verification:events and fans every entry out
// to the SSE subscribers of this instance. Each instance owns its consumer
// group so all of them see every event.
type VerificationEventWorker struct {
	rdb      *redis.Client
	hub      *broadcast.Hub[models.Event]
	cache    *cache.CacheService
	group    string
	consumer string
	pusher   *TelegramPusher

	// попытки отправки по stream id; трогает только цикл Start
	pushAttempts map[string]int
	lastRetry    time.Time
}

func NewVerificationEventWorker(rdb *redis.Client, hub *broadcast.Hub[models.Event], cache *cache.CacheService, instance string) *VerificationEventWorker {
	return &VerificationEventWorker{
		rdb:          rdb,
		hub:          hub,
		cache:        cache,
		group:        groupPrefix + ":" + instance,
		consumer:     instance,
		pushAttempts: make(map[string]int),
	}
}

// WithTelegramPush enables chat messages for review decisions.
func (w *VerificationEventWorker) WithTelegramPush(p *TelegramPusher) *VerificationEventWorker {
	w.pusher = p
	return w
}

// Start blocks until ctx is cancelled.
func (w *VerificationEventWorker) Start(ctx context.Context) {
	if err := w.ensureGroup(ctx); err != nil {
		logger.Error().Err(err).Str("group", w.group).Msg("Error creating consumer group")
	}

	logger.Info().Str("group", w.group).Msg("Starting verification events worker")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Stopping verification events worker")
			return
		default:
		}

		if w.pusher != nil && time.Since(w.lastRetry) >= pushRetryEvery {
			w.lastRetry = time.Now()
			if _, err := w.retryPending(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("Error retrying pending Telegram pushes")
			}
		}

		if _, err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Warn().Err(err).Msg("Error reading verification events")
			if strings.HasPrefix(err.Error(), "NOGROUP") {
				_ = w.ensureGroup(ctx)
			}
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
		}
	}
}

func (w *VerificationEventWorker) ensureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, keys.VerificationEvents, w.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// poll reads one batch and returns how many entries were handled.
func (w *VerificationEventWorker) poll(ctx context.Context) (int, error) {
	streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.group,
		Consumer: w.consumer,
		Streams:  []string{keys.VerificationEvents, ">"},
		Count:    readCount,
		Block:    readBlock,
	}).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if w.handleMessage(ctx, msg) {
				w.ack(ctx, msg.ID)
			}
			handled++
		}
	}
	return handled, nil
}

// retryPending re-sends the Telegram push for entries this consumer left
// unacked. It returns how many entries were acked.
func (w *VerificationEventWorker) retryPending(ctx context.Context) (int, error) {
	streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.group,
		Consumer: w.consumer,
		Streams:  []string{keys.VerificationEvents, "0"},
		Count:    readCount,
		Block:    -1,
	}).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if w.retryPush(ctx, msg) {
				w.ack(ctx, msg.ID)
				acked++
			}
		}
	}
	return acked, nil
}

func (w *VerificationEventWorker) retryPush(ctx context.Context, msg redis.XMessage) bool {
	event, err := models.EventFromValues(msg.ID, msg.Values)
	if err != nil || w.pusher == nil {
		return true
	}
	return w.push(ctx, event)
}

// push reports whether the entry is done with: sent, skipped or out of
// attempts.
func (w *VerificationEventWorker) push(ctx context.Context, event models.Event) bool {
	if _, err := w.pusher.Push(ctx, event); err != nil {
		w.pushAttempts[event.StreamID]++
		attempts := w.pushAttempts[event.StreamID]
		if attempts < maxPushAttempts {
			logger.Warn().Err(err).Str("stream_id", event.StreamID).Int("attempt", attempts).Msg("Failed to push decision to Telegram, will retry")
			return false
		}
		logger.Error().Err(err).Str("stream_id", event.StreamID).Int("attempt", attempts).Msg("Giving up on Telegram push")
	}
	delete(w.pushAttempts, event.StreamID)
	return true
}

func (w *VerificationEventWorker) ack(ctx context.Context, id string) {
	if err := w.rdb.XAck(ctx, keys.VerificationEvents, w.group, id).Err(); err != nil {
		logger.Warn().Err(err).Str("stream_id", id).Msg("Failed to ack verification event")
	}
}

// handleMessage reports whether the entry can be acked. A malformed entry is
// logged and acked; a failed Telegram push keeps it pending for retryPending.
func (w *VerificationEventWorker) handleMessage(ctx context.Context, msg redis.XMessage) bool {
	event, err := models.EventFromValues(msg.ID, msg.Values)
	if err != nil {
		logger.Warn().Err(err).Str("stream_id", msg.ID).Msg("Skipping malformed verification event")
		return true
	}

	if err := w.cache.InvalidateUserCache(ctx, event.UserID); err != nil {
		logger.Warn().Err(err).Int64("user_id", event.UserID).Msg("Failed to invalidate user cache")
	}

	done := true
	if w.pusher != nil {
		done = w.push(ctx, event)
	}

	delivered := w.hub.Publish(event)
	logger.Debug().
		Str("type", string(event.Type)).
		Str("request_id", event.RequestID).
		Int("subscribers", delivered).
		Msg("Verification event dispatched")
	return done
}
