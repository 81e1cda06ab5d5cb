package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"debate-platform-backend/internal/common/errors"
)

const (
	ctxKeyUserID = "user_id"
	ctxKeyRole   = "role"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (userID int64, role string, err error)
}

// BanChecker reports whether a user is banned.
type BanChecker interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
}

// RequireAuth expects "Authorization: Bearer <access token>".
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			Abort(c, errors.NewUnauthorizedError("bearer token required"))
			return
		}

		userID, role, err := verifier.VerifyAccessToken(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			Abort(c, errors.NewUnauthorizedError("invalid or expired token"))
			return
		}

		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyRole, role)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxKeyUserID); !ok {
			Abort(c, errors.NewUnauthorizedError("bearer token required"))
			return
		}
		if !IsAdmin(c) {
			Abort(c, errors.NewForbiddenError("admin access required"))
			return
		}
		c.Next()
	}
}

// CheckBanned rejects banned users. Admins are never checked.
func CheckBanned(checker BanChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == 0 || IsAdmin(c) {
			c.Next()
			return
		}

		banned, err := checker.IsBanned(c.Request.Context(), userID)
		if err == nil && banned {
			Abort(c, errors.New(errors.ErrCodeUserBanned, "Your account has been banned"))
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id or 0.
func CurrentUserID(c *gin.Context) int64 {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(ctxKeyRole) == RoleAdmin
}
