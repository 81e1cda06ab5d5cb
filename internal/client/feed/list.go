package feed

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"debate-platform-backend/internal/common/pagination"
)

// DefaultPageSize is used when Options.PageSize is unset. Ordering is fixed
// per endpoint on the server.
const DefaultPageSize = 10

var ErrInvalidOptions = stderrors.New("feed: endpoint and key are required")

type Options struct {
	Endpoint string
	Search   string
	// Key is the cache namespace of this list.
	Key      string
	Enabled  bool
	PageSize int
	// Filters are extra query parameters, e.g. unread=true.
	Filters map[string]string
}

// List accumulates pages of T in load order.
type List[T any] struct {
	cache *QueryCache
	opts  Options

	mu    sync.Mutex
	pages []pagination.Page[T]
}

func NewList[T any](cache *QueryCache, opts Options) (*List[T], error) {
	if opts.Endpoint == "" || opts.Key == "" {
		return nil, ErrInvalidOptions
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &List[T]{cache: cache, opts: opts}, nil
}

// HasNextPage is true before the first load and while the last loaded page
// is behind the total.
func (l *List[T]) HasNextPage() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasNext()
}

func (l *List[T]) hasNext() bool {
	if !l.opts.Enabled {
		return false
	}
	if len(l.pages) == 0 {
		return true
	}
	last := l.pages[len(l.pages)-1]
	return last.CurrentPage < last.TotalPages
}

// FetchNext loads the next page. It reports false when nothing was loaded.
func (l *List[T]) FetchNext(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.hasNext() {
		return false, nil
	}
	next := len(l.pages) + 1

	query := map[string]string{
		"page":   strconv.Itoa(next),
		"limit":  strconv.Itoa(l.opts.PageSize),
		"search": l.opts.Search,
	}
	for k, v := range l.opts.Filters {
		query[k] = v
	}

	raw, err := l.cache.Fetch(ctx, l.pageKey(next), l.opts.Endpoint, query)
	if err != nil {
		return false, err
	}

	var page pagination.Page[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return false, fmt.Errorf("decode page %d: %w", next, err)
	}
	l.pages = append(l.pages, page)
	return true, nil
}

func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	var items []T
	for _, p := range l.pages {
		items = append(items, p.Items...)
	}
	return items
}

func (l *List[T]) PagesLoaded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pages)
}

// Reset forgets loaded pages and their cache entries.
func (l *List[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pages = nil
	l.cache.Invalidate(l.keyPrefix())
}

// Follow loads the next page every time the end of the list becomes visible.
// It returns when visible closes, the list is exhausted or ctx is done.
func (l *List[T]) Follow(ctx context.Context, visible <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-visible:
			if !ok {
				return nil
			}
			if !l.HasNextPage() {
				return nil
			}
			if _, err := l.FetchNext(ctx); err != nil {
				return err
			}
		}
	}
}

// keyPrefix covers everything that shapes a page except its number, so lists
// sharing a Key with other filters or page sizes do not collide.
func (l *List[T]) keyPrefix() string {
	filters := url.Values{}
	for k, v := range l.opts.Filters {
		filters.Set(k, v)
	}
	return l.opts.Key + "|" + l.opts.Search + "|" + strconv.Itoa(l.opts.PageSize) + "|" + filters.Encode() + "|"
}

func (l *List[T]) pageKey(page int) string {
	return l.keyPrefix() + strconv.Itoa(page)
}
