package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	Name string `json:"name"`
}

func newCache(t *testing.T) *CacheService {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheService(client)
}

func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	calls := 0
	loader := func() (interface{}, error) {
		calls++
		return view{Name: "jdoe"}, nil
	}

	var first, second view
	require.NoError(t, c.GetOrSet(ctx, UserViewKey(1), &first, time.Minute, loader))
	require.NoError(t, c.GetOrSet(ctx, UserViewKey(1), &second, time.Minute, loader))

	assert.Equal(t, "jdoe", first.Name)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestInvalidateUserCache(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, c.Set(ctx, UserViewKey(5), view{Name: "a"}, time.Minute))
	require.NoError(t, c.InvalidateUserCache(ctx, 5))

	var v view
	assert.ErrorIs(t, c.Get(ctx, UserViewKey(5), &v), ErrMiss)
}
