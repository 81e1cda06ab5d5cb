// Package feed loads paginated lists page by page and keeps the pages in a
// shared query cache.
package feed

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Fetcher is the part of api.Client the feed needs.
type Fetcher interface {
	Get(ctx context.Context, path string, query map[string]string, out any) error
}

// QueryCache stores raw page bodies by key. Concurrent loads of the same key
// share one request.
type QueryCache struct {
	fetcher Fetcher
	group   singleflight.Group

	mu    sync.RWMutex
	pages map[string]json.RawMessage
}

func NewQueryCache(fetcher Fetcher) *QueryCache {
	return &QueryCache{
		fetcher: fetcher,
		pages:   make(map[string]json.RawMessage),
	}
}

// Fetch returns the cached body for key or loads it from endpoint.
func (q *QueryCache) Fetch(ctx context.Context, key, endpoint string, query map[string]string) (json.RawMessage, error) {
	q.mu.RLock()
	raw, ok := q.pages[key]
	q.mu.RUnlock()
	if ok {
		return raw, nil
	}

	v, err, _ := q.group.Do(key, func() (interface{}, error) {
		var body json.RawMessage
		if err := q.fetcher.Get(ctx, endpoint, query, &body); err != nil {
			return nil, err
		}
		q.mu.Lock()
		q.pages[key] = body
		q.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// Invalidate drops every key with the given prefix.
func (q *QueryCache) Invalidate(prefix string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k := range q.pages {
		if strings.HasPrefix(k, prefix) {
			delete(q.pages, k)
		}
	}
}

func (q *QueryCache) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.pages)
}
