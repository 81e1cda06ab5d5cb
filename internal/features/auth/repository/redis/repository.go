package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"debate-platform-backend/internal/features/auth/repository"
	"debate-platform-backend/internal/platform/redis/keys"
)

type tokenRepository struct {
	client *redis.Client
}

func NewTokenRepository(client *redis.Client) repository.TokenRepository {
	return &tokenRepository{client: client}
}

func (r *tokenRepository) SaveRefreshToken(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if err := r.client.Set(ctx, keys.RefreshToken(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (r *tokenRepository) ConsumeRefreshToken(ctx context.Context, token string) (int64, error) {
	raw, err := r.client.GetDel(ctx, keys.RefreshToken(token)).Result()
	if err == redis.Nil {
		return 0, repository.ErrRefreshTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to consume refresh token: %w", err)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupted refresh token record: %w", err)
	}
	return userID, nil
}

func (r *tokenRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return r.client.Del(ctx, keys.RefreshToken(token)).Err()
}
