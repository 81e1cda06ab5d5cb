package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debate-platform-backend/internal/common/cache"
	"debate-platform-backend/internal/common/errors"
	"debate-platform-backend/internal/common/pagination"
	nmodels "debate-platform-backend/internal/features/notification/models"
	nrepository "debate-platform-backend/internal/features/notification/repository"
	nredis "debate-platform-backend/internal/features/notification/repository/redis"
	usermodels "debate-platform-backend/internal/features/user/models"
	userredis "debate-platform-backend/internal/features/user/repository/redis"
	userservice "debate-platform-backend/internal/features/user/service"
	"debate-platform-backend/internal/features/verification/models"
	vredis "debate-platform-backend/internal/features/verification/repository/redis"
	"debate-platform-backend/internal/platform/redis/keys"
)

const (
	userID  int64 = 1001
	adminID int64 = 1
)

type fixture struct {
	svc           VerificationService
	users         userservice.UserService
	notifications nrepository.NotificationRepository
	client        *redis.Client
	mr            *miniredis.Miniredis
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cacheSvc := cache.NewCacheService(client)
	users := userservice.NewUserService(userredis.NewUserRepository(client), cacheSvc, time.Minute)
	_, err := users.GetOrCreateUser(context.Background(), usermodels.TelegramProfile{ID: userID, Username: "jdoe_debater", FirstName: "John"})
	require.NoError(t, err)

	f := &fixture{
		users:         users,
		notifications: nredis.NewNotificationRepository(client),
		client:        client,
		mr:            mr,
		now:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	svc := NewVerificationService(vredis.NewVerificationRepository(client), users, cacheSvc, 30*time.Minute).(*verificationService)
	svc.nowFn = func() time.Time { return f.now }
	svc.codeFn = func() (string, error) { return "7QX2", nil }
	f.svc = svc
	return f
}

func (f *fixture) notificationsOf(t *testing.T, typ nmodels.Type) int {
	t.Helper()
	items, _, err := f.notifications.List(context.Background(), userID, false, pagination.Params{Page: 1, Limit: 100})
	require.NoError(t, err)
	n := 0
	for _, item := range items {
		if item.Type == typ {
			n++
		}
	}
	return n
}

func (f *fixture) submitted(t *testing.T, platform, url string) *models.Request {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, userID, platform)
	require.NoError(t, err)
	req, err := f.svc.Submit(ctx, userID, platform, url)
	require.NoError(t, err)
	return req
}

func TestStart(t *testing.T) {
	f := newFixture(t)

	ch, err := f.svc.Start(context.Background(), userID, "linkedin")
	require.NoError(t, err)
	assert.Equal(t, "7QX2", ch.Code)
	assert.Equal(t, f.now.Add(30*time.Minute), ch.ExpiresAt)
	assert.Contains(t, ch.Instructions, "7QX2")

	stored, err := f.client.Get(context.Background(), keys.VerificationCode(userID, "linkedin")).Result()
	require.NoError(t, err)
	assert.Equal(t, "7QX2", stored)
	assert.Equal(t, 30*time.Minute, f.mr.TTL(keys.VerificationCode(userID, "linkedin")))

	_, err = f.svc.Start(context.Background(), userID, "myspace")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestSubmitInvalidURLNeverCreatesRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, platform := range models.Platforms() {
		t.Run(string(platform), func(t *testing.T) {
			_, err := f.svc.Start(ctx, userID, string(platform))
			require.NoError(t, err)

			for _, url := range []string{"", "not a url", "https://example.com/" + string(platform), "ftp://" + string(platform) + ".com/jdoe"} {
				_, err := f.svc.Submit(ctx, userID, string(platform), url)
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidation), "url %q", url)
			}

			exists, err := f.client.Exists(ctx, keys.VerificationRequest(models.RequestID(userID, platform))).Result()
			require.NoError(t, err)
			assert.Zero(t, exists)
		})
	}

	count, err := f.client.ZCard(ctx, keys.VerificationRequests).Result()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitRequiresStart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), userID, "github", "https://github.com/jdoe")
	assert.True(t, errors.HasCode(err, errors.ErrCodeVerificationNotStarted))
}

func TestLinkedInApproveScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.submitted(t, "linkedin", "https://linkedin.com/in/jdoe")
	assert.Equal(t, "1001_linkedin", req.ID)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "7QX2", req.Code)

	overview, err := f.svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, overview.VerificationStatus[models.PlatformLinkedIn].Status)

	// the code is consumed by the submission
	exists, err := f.client.Exists(ctx, keys.VerificationCode(userID, "linkedin")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	f.now = f.now.Add(time.Hour)
	approved, err := f.svc.Approve(ctx, req.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, approved.Status)
	assert.Equal(t, adminID, approved.ReviewedBy)

	overview, err = f.svc.Status(ctx, userID)
	require.NoError(t, err)
	state := overview.VerificationStatus[models.PlatformLinkedIn]
	assert.Equal(t, models.StatusVerified, state.Status)
	require.NotNil(t, state.UpdatedAt)
	assert.True(t, f.now.Equal(*state.UpdatedAt))
	assert.Equal(t, "https://linkedin.com/in/jdoe", overview.SocialLinks[models.PlatformLinkedIn])

	_, err = f.svc.GetRequest(ctx, req.ID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
	assert.Equal(t, 1, f.notificationsOf(t, nmodels.TypeVerificationApproved))

	events, err := f.client.XLen(ctx, keys.VerificationEvents).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), events)

	// verified is terminal
	_, err = f.svc.Start(ctx, userID, "linkedin")
	assert.True(t, errors.HasCode(err, errors.ErrCodeAlreadyVerified))
}

func TestRejectKeepsRequestAndNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.submitted(t, "github", "https://github.com/jdoe")

	rejected, err := f.svc.Reject(ctx, req.ID, adminID, "code <i>missing</i>")
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)
	assert.Equal(t, "code missing", rejected.Reason)

	stored, err := f.svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, stored.Status)

	_, err = f.svc.Reject(ctx, req.ID, adminID, "again")
	assert.True(t, errors.HasCode(err, errors.ErrCodeRequestNotPending))
	_, err = f.svc.Approve(ctx, req.ID, adminID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRequestNotPending))

	assert.Equal(t, 1, f.notificationsOf(t, nmodels.TypeVerificationRejected))
	assert.Zero(t, f.notificationsOf(t, nmodels.TypeVerificationApproved))

	overview, err := f.svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, overview.VerificationStatus[models.PlatformGitHub].Status)
	assert.Empty(t, overview.SocialLinks[models.PlatformGitHub])

	// rejected -> pending: resubmission overwrites the same document
	again := f.submitted(t, "github", "https://github.com/jdoe2")
	assert.Equal(t, req.ID, again.ID)

	page, err := f.svc.ListRequests(ctx, "pending", pagination.Params{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "https://github.com/jdoe2", page.Items[0].ProfileURL)
}

func TestApproveUnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Approve(context.Background(), "1001_tiktok", adminID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestListRequestsFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gh := f.submitted(t, "github", "https://github.com/jdoe")
	f.now = f.now.Add(time.Minute)
	f.submitted(t, "twitter", "https://x.com/jdoe")
	_, err := f.svc.Reject(ctx, gh.ID, adminID, "")
	require.NoError(t, err)

	all, err := f.svc.ListRequests(ctx, "", pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, gh.ID, all.Items[0].ID)

	rejected, err := f.svc.ListRequests(ctx, "rejected", pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, rejected.Total)

	_, err = f.svc.ListRequests(ctx, "lost", pagination.Params{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestConcurrentApproveNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	req := f.submitted(t, "youtube", "https://youtube.com/@jdoe")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Approve(context.Background(), req.ID, adminID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.notificationsOf(t, nmodels.TypeVerificationApproved))
}
