package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"debate-platform-backend/internal/common/cache"
	"debate-platform-backend/internal/common/errors"
	authredis "debate-platform-backend/internal/features/auth/repository/redis"
	usermodels "debate-platform-backend/internal/features/user/models"
	userredis "debate-platform-backend/internal/features/user/repository/redis"
	userservice "debate-platform-backend/internal/features/user/service"
)

const adminID int64 = 1

func newTestService(t *testing.T) (*authService, userservice.UserService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := userservice.NewUserService(userredis.NewUserRepository(client), cache.NewCacheService(client), time.Minute)
	svc := NewAuthService(authredis.NewTokenRepository(client), users, Options{
		Secret:          []byte("test-secret"),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		AdminIDs:        []int64{adminID},
	}).(*authService)
	return svc, users
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, user, err := svc.LoginTelegram(ctx, initdata.User{ID: 42, Username: "jdoe_42", FirstName: "John"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, usermodels.RoleUser, user.Role)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	id, role, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, usermodels.RoleUser, role)

	adminPair, adminUser, err := svc.LoginTelegram(ctx, initdata.User{ID: adminID, Username: "the_admin", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, usermodels.RoleAdmin, adminUser.Role)
	_, role, err = svc.VerifyAccessToken(adminPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, usermodels.RoleAdmin, role)
}

func TestVerifyAccessTokenRejectsExpiredAndForeign(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	issuedAt := time.Now()
	svc.nowFn = func() time.Time { return issuedAt }
	pair, err := svc.IssueTokens(ctx, 42)
	require.NoError(t, err)

	svc.nowFn = func() time.Time { return issuedAt.Add(16 * time.Minute) }
	_, _, err = svc.VerifyAccessToken(pair.AccessToken)
	assert.Error(t, err)

	svc.nowFn = func() time.Time { return issuedAt }
	other := NewAuthService(nil, nil, Options{Secret: []byte("other-secret")})
	_, _, err = other.VerifyAccessToken(pair.AccessToken)
	assert.Error(t, err)

	_, _, err = svc.VerifyAccessToken("not-a-jwt")
	assert.Error(t, err)
}

func TestRefreshRotates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, _, err := svc.LoginTelegram(ctx, initdata.User{ID: 42, Username: "jdoe_42", FirstName: "John"})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))

	require.NoError(t, svc.Logout(ctx, next.RefreshToken))
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))
}

func TestBannedUserCannotLoginOrRefresh(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	pair, _, err := svc.LoginTelegram(ctx, initdata.User{ID: 42, Username: "jdoe_42", FirstName: "John"})
	require.NoError(t, err)
	require.NoError(t, users.UpdateUserStatus(ctx, 42, usermodels.StatusBanned))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUserBanned))

	_, _, err = svc.LoginTelegram(ctx, initdata.User{ID: 42, Username: "jdoe_42", FirstName: "John"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeUserBanned))
}
