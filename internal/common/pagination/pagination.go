package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"debate-platform-backend/internal/common/errors"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params are the page/limit/search query parameters shared by list endpoints.
type Params struct {
	Page   int
	Limit  int
	Search string
}

func (p Params) Offset() int { return (p.Page - 1) * p.Limit }

// Normalize fills defaults and clamps the limit.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// FromQuery reads ?page=&limit=&search=.
func FromQuery(c *gin.Context) (Params, error) {
	p := Params{Search: c.Query("search")}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Params{}, errors.NewValidationError("page", "must be a positive integer")
		}
		p.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Params{}, errors.NewValidationError("limit", "must be a positive integer")
		}
		p.Limit = n
	}
	return p.Normalize(), nil
}

// Page is the list envelope: the client derives "has next" from
// CurrentPage < TotalPages.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	Total       int `json:"total"`
}

func NewPage[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := (total + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return Page[T]{Items: items, CurrentPage: p.Page, TotalPages: totalPages, Total: total}
}

// Slice cuts the requested window out of an already filtered, ordered slice.
func Slice[T any](all []T, p Params) Page[T] {
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return NewPage(all[start:end], len(all), p)
}
