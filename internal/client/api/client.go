// Package api is the HTTP client of the debate platform API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"debate-platform-backend/internal/common/config"
	"debate-platform-backend/internal/common/logger"
)

// ErrUnauthorized means the refresh exchange failed too; the caller has to
// log in again.
var ErrUnauthorized = stderrors.New("api: unauthorized, login required")

// Error is a non-2xx response.
type Error struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Code == code
}

// TokenStore keeps the token pair between calls and runs.
type TokenStore interface {
	Tokens(ctx context.Context) (access, refresh string, err error)
	SaveTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
}

// MemoryTokens is a TokenStore for a single process.
type MemoryTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (m *MemoryTokens) Tokens(context.Context) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh, nil
}

func (m *MemoryTokens) SaveTokens(_ context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
	return nil
}

func (m *MemoryTokens) ClearTokens(context.Context) error {
	return m.SaveTokens(context.Background(), "", "")
}

// TokenPair mirrors the server's login and refresh response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// File is one part of a multipart upload.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	refresh singleflight.Group
}

func New(baseURL string, timeout time.Duration, tokens TokenStore) *Client {
	if tokens == nil {
		tokens = &MemoryTokens{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout, Transport: http.DefaultTransport.(*http.Transport).Clone()},
		tokens:  tokens,
	}
}

func NewFromConfig(cfg *config.ClientConfig, tokens TokenStore) *Client {
	return New(cfg.APIBaseURL, cfg.RequestTimeout, tokens)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// BuildQuery drops empty values; keys come out sorted.
func BuildQuery(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if strings.TrimSpace(v) == "" {
			continue
		}
		values.Set(k, v)
	}
	return values.Encode()
}

func (c *Client) Get(ctx context.Context, path string, query map[string]string, out any) error {
	if q := BuildQuery(query); q != "" {
		path += "?" + q
	}
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, files []File, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, buf.Bytes(), w.FormDataContentType(), out)
}

// LoginTelegram exchanges Mini App init data for a token pair and stores it.
func (c *Client) LoginTelegram(ctx context.Context, initData string, out any) (*TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/telegram", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("init_data", initData)

	var raw json.RawMessage
	if err := c.roundTrip(req, &raw); err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if out != nil {
		var withUser struct {
			User json.RawMessage `json:"user"`
		}
		if err := json.Unmarshal(raw, &withUser); err == nil && len(withUser.User) > 0 {
			if err := json.Unmarshal(withUser.User, out); err != nil {
				return nil, fmt.Errorf("decode user: %w", err)
			}
		}
	}

	if err := c.tokens.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, refresh, err := c.tokens.Tokens(ctx)
	if err != nil {
		return err
	}
	if refresh != "" {
		if err := c.Post(ctx, "/auth/logout", map[string]string{"refresh_token": refresh}, nil); err != nil {
			logger.Debug().Err(err).Msg("logout request failed")
		}
	}
	return c.tokens.ClearTokens(ctx)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	return c.do(ctx, method, path, data, "application/json", out)
}

// do sends the request with the current access token. On 401 it performs
// one refresh exchange and retries once.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	access, _, err := c.tokens.Tokens(ctx)
	if err != nil {
		return err
	}

	err = c.send(ctx, method, path, body, contentType, access, out)
	if !isStatus(err, http.StatusUnauthorized) {
		return err
	}

	logger.Debug().Str("path", path).Msg("access token rejected, refreshing")
	fresh, err := c.refreshAccess(ctx, access)
	if err != nil {
		return err
	}

	err = c.send(ctx, method, path, body, contentType, fresh, out)
	if isStatus(err, http.StatusUnauthorized) {
		return ErrUnauthorized
	}
	return err
}

// refreshAccess coalesces concurrent refreshes of the same stale token.
func (c *Client) refreshAccess(ctx context.Context, stale string) (string, error) {
	v, err, _ := c.refresh.Do(stale, func() (interface{}, error) {
		access, refresh, err := c.tokens.Tokens(ctx)
		if err != nil {
			return "", err
		}
		// другой запрос уже обновил пару
		if access != stale && access != "" {
			return access, nil
		}
		if refresh == "" {
			return "", ErrUnauthorized
		}

		data, _ := json.Marshal(map[string]string{"refresh_token": refresh})
		var pair TokenPair
		err = c.send(ctx, http.MethodPost, "/auth/refresh", data, "application/json", "", &pair)
		if err != nil {
			var apiErr *Error
			if stderrors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
				_ = c.tokens.ClearTokens(ctx)
				return "", ErrUnauthorized
			}
			return "", err
		}

		if err := c.tokens.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
			return "", err
		}
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, contentType, access string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" && body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	return c.roundTrip(req, out)
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		RequestID string `json:"request_id"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.RequestID = envelope.RequestID
	}
	return apiErr
}

func isStatus(err error, status int) bool {
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Status == status
}
