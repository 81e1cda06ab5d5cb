package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type tokenServer struct {
	refreshCalls atomic.Int32
	failRefresh  bool
	alwaysDeny   bool
}

func (s *tokenServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if s.failRefresh || body.RefreshToken != "refresh-1" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: invalid refresh token")
			return
		}
		_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "fresh", RefreshToken: "refresh-2", TokenType: "Bearer", ExpiresIn: 900})
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		if s.alwaysDeny || r.Header.Get("Authorization") != "Bearer fresh" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: token expired")
			return
		}
		_, _ = io.WriteString(w, `{"id":42,"username":"jdoe"}`)
	})
	mux.HandleFunc("/topics", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusConflict, "CONFLICT", "Conflict with topic: name already taken")
	})
	return mux
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":    false,
		"error":      map[string]string{"code": code, "message": message},
		"request_id": "req-1",
	})
}

func newTestClient(t *testing.T, s *tokenServer) (*Client, *MemoryTokens) {
	srv := httptest.NewServer(s.handler())
	tokens := &MemoryTokens{}
	require.NoError(t, tokens.SaveTokens(context.Background(), "stale", "refresh-1"))
	c := New(srv.URL, 5*time.Second, tokens)
	t.Cleanup(func() {
		c.Close()
		srv.Close()
	})
	return c, tokens
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(map[string]string{
		"search":   "",
		"page":     "2",
		"limit":    "10",
		"order_by": "created_at",
		"blank":    "   ",
	})
	assert.Equal(t, "limit=10&order_by=created_at&page=2", q)
	assert.Equal(t, "", BuildQuery(nil))
}

func TestClient_RefreshesOnceOn401(t *testing.T) {
	s := &tokenServer{}
	c, tokens := newTestClient(t, s)

	var me struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, c.Get(context.Background(), "/users/me", nil, &me))
	assert.Equal(t, int64(42), me.ID)
	assert.Equal(t, int32(1), s.refreshCalls.Load())

	access, refresh, _ := tokens.Tokens(context.Background())
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "refresh-2", refresh)
}

func TestClient_SecondUnauthorizedStops(t *testing.T) {
	s := &tokenServer{alwaysDeny: true}
	c, _ := newTestClient(t, s)

	err := c.Get(context.Background(), "/users/me", nil, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), s.refreshCalls.Load())
}

func TestClient_FailedRefreshClearsTokens(t *testing.T) {
	s := &tokenServer{failRefresh: true}
	c, tokens := newTestClient(t, s)

	err := c.Get(context.Background(), "/users/me", nil, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	access, refresh, _ := tokens.Tokens(context.Background())
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestClient_DecodesErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, &tokenServer{})

	err := c.Post(context.Background(), "/topics", map[string]string{"name": "AI"}, nil)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "CONFLICT", apiErr.Code)
	assert.Equal(t, "req-1", apiErr.RequestID)
	assert.True(t, IsCode(err, "CONFLICT"))
	assert.True(t, strings.Contains(err.Error(), "409"))
}

func TestClient_StreamParsesEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "expired")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": hello\n\n")
		_, _ = io.WriteString(w, "event:verification\ndata:{\"type\":\"submitted\",\"request_id\":\"42_github\"}\n\n")
		_, _ = io.WriteString(w, "event: ping\ndata: {\"at\":\"now\"}\n\n")
	}))
	tokens := &MemoryTokens{}
	require.NoError(t, tokens.SaveTokens(context.Background(), "fresh", ""))
	c := New(srv.URL, time.Second, tokens)
	t.Cleanup(func() {
		c.Close()
		srv.Close()
	})

	var events []Event
	err := c.Stream(context.Background(), "/admin/verification-requests/stream", func(e Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "verification", events[0].Name)
	assert.JSONEq(t, `{"type":"submitted","request_id":"42_github"}`, string(events[0].Data))
	assert.Equal(t, "ping", events[1].Name)
}
