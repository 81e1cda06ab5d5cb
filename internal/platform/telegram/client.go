package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.telegram.org"

// Client is a minimal Bot API client: the backend only sends messages.
type Client struct {
	httpClient *http.Client
	token      string
	apiURL     string
}

// RPSError представляет ошибку превышения лимита запросов
type RPSError struct {
	Msg        string
	RetryAfter time.Duration
}

func (e *RPSError) Error() string {
	return e.Msg
}

func NewClient(token, apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
		apiURL:     strings.TrimRight(apiURL, "/"),
	}
}

type tgResponse[T any] struct {
	Ok          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
	Result      T      `json:"result"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

type message struct {
	MessageID int64 `json:"message_id"`
}

// SendMessage пишет пользователю в личный чат с ботом (chat id = user id).
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{
		"chat_id":                  {strconv.FormatInt(chatID, 10)},
		"text":                     {text},
		"disable_web_page_preview": {"true"},
	}

	var result tgResponse[message]
	if err := c.makeRequest(ctx, http.MethodPost, c.endpoint("sendMessage"), params, &result); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	if !result.Ok {
		if result.ErrorCode == http.StatusTooManyRequests {
			rps := &RPSError{Msg: "telegram API rate limit: " + result.Description}
			if result.Parameters != nil {
				rps.RetryAfter = time.Duration(result.Parameters.RetryAfter) * time.Second
			}
			return rps
		}
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, data url.Values, out any) error {
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if len(data) > 0 {
			endpoint = endpoint + "?" + data.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return err
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}
