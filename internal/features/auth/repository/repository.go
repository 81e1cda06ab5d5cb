package repository

import (
	"context"
	"errors"
	"time"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token string, userID int64, ttl time.Duration) error
	// ConsumeRefreshToken deletes the token and returns its owner. A token
	// can be consumed once.
	ConsumeRefreshToken(ctx context.Context, token string) (int64, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}
