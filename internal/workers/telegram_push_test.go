package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debate-platform-backend/internal/features/verification/models"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[int64][]string
	err  error
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.sent == nil {
		s.sent = map[int64][]string{}
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func newPushClient(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestTelegramPusher_OneMessageAcrossInstances(t *testing.T) {
	client := newPushClient(t)
	sender := &recordingSender{}
	event := models.Event{StreamID: "1-0", Type: models.EventApproved, UserID: 7, Platform: models.PlatformGitHub, At: time.Now()}

	first := NewTelegramPusher(client, sender)
	second := NewTelegramPusher(client, sender)

	sent, err := first.Push(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = second.Push(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, sent)

	require.Len(t, sender.sent[7], 1)
	assert.Contains(t, sender.sent[7][0], "github")
}

func TestTelegramPusher_SkipsSubmitted(t *testing.T) {
	sender := &recordingSender{}
	p := NewTelegramPusher(newPushClient(t), sender)

	sent, err := p.Push(context.Background(), models.Event{StreamID: "1-0", Type: models.EventSubmitted, UserID: 7})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, sender.sent)
}

func TestTelegramPusher_ReleasesMarkerOnFailure(t *testing.T) {
	client := newPushClient(t)
	sender := &recordingSender{err: errors.New("bot was blocked")}
	p := NewTelegramPusher(client, sender)
	event := models.Event{StreamID: "2-0", Type: models.EventRejected, UserID: 7, Platform: models.PlatformLinkedIn}

	_, err := p.Push(context.Background(), event)
	require.Error(t, err)

	sender.err = nil
	sent, err := p.Push(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Contains(t, sender.sent[7][0], "rejected")
}
