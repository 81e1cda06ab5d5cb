package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/logger"
)

const (
	ctxKeyTelegramUser = "telegram_user"
	headerInitData     = "init_data"
)

// TelegramInitData validates the init_data header and stores the Telegram user.
// Used only by the login route; every other route is bearer-authenticated.
func TelegramInitData(botToken string, expIn time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(headerInitData)
		if raw == "" {
			Abort(c, errors.NewUnauthorizedError("Telegram init data required"))
			return
		}
		if botToken == "" {
			logger.Error().Msg("BOT_TOKEN not configured")
			Abort(c, errors.New(errors.ErrCodeInternal, "Server configuration error"))
			return
		}

		if err := initdata.Validate(raw, botToken, expIn); err != nil {
			logger.Debug().Err(err).Msg("init data validation failed")
			Abort(c, errors.NewUnauthorizedError("invalid init data"))
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			Abort(c, errors.New(errors.ErrCodeBadRequest, "Failed to parse init data"))
			return
		}

		c.Set(ctxKeyTelegramUser, parsed.User)
		c.Next()
	}
}

// TelegramUser returns the user stored by TelegramInitData.
func TelegramUser(c *gin.Context) (initdata.User, bool) {
	v, ok := c.Get(ctxKeyTelegramUser)
	if !ok {
		return initdata.User{}, false
	}
	u, ok := v.(initdata.User)
	return u, ok
}
