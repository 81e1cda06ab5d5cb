package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/features/verification/models"
	"debate-platform-backend/internal/platform/redis/keys"
)

const pushMarkerTTL = 24 * time.Hour

// MessageSender is satisfied by telegram.Client.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramPusher mirrors review decisions into the user's chat with the bot.
// Every instance reads every event, so a Redis marker lets only the first one
// send.
type TelegramPusher struct {
	rdb    *redis.Client
	sender MessageSender
}

func NewTelegramPusher(rdb *redis.Client, sender MessageSender) *TelegramPusher {
	return &TelegramPusher{rdb: rdb, sender: sender}
}

// Push reports whether a message was sent by this call.
func (p *TelegramPusher) Push(ctx context.Context, event models.Event) (bool, error) {
	text := decisionText(event)
	if text == "" || event.StreamID == "" {
		return false, nil
	}

	claimed, err := p.rdb.SetNX(ctx, keys.TelegramPush(event.StreamID), 1, pushMarkerTTL).Result()
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	if err := p.sender.SendMessage(ctx, event.UserID, text); err != nil {
		// отдаем маркер: запись остается в pending и повторяется через retryPending
		if delErr := p.rdb.Del(ctx, keys.TelegramPush(event.StreamID)).Err(); delErr != nil {
			logger.Warn().Err(delErr).Str("stream_id", event.StreamID).Msg("Failed to release push marker")
		}
		return false, err
	}
	return true, nil
}

func decisionText(event models.Event) string {
	switch event.Type {
	case models.EventApproved:
		return fmt.Sprintf("Your %s account has been verified.", event.Platform)
	case models.EventRejected:
		return fmt.Sprintf("Your %s verification was rejected. Open the app to see the reason and resubmit.", event.Platform)
	default:
		return ""
	}
}
