package api

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"strings"
)

// Event is one server-sent event.
type Event struct {
	Name string
	Data []byte
}

// Stream opens an event stream at path and calls fn per event until the
// server closes it, ctx is done or fn returns an error.
func (c *Client) Stream(ctx context.Context, path string, fn func(Event) error) error {
	access, _, err := c.tokens.Tokens(ctx)
	if err != nil {
		return err
	}

	resp, err := c.openStream(ctx, path, access)
	if isStatus(err, http.StatusUnauthorized) {
		fresh, rerr := c.refreshAccess(ctx, access)
		if rerr != nil {
			return rerr
		}
		resp, err = c.openStream(ctx, path, fresh)
		if isStatus(err, http.StatusUnauthorized) {
			return ErrUnauthorized
		}
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	name := "message"
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if data.Len() > 0 {
				payload := bytes.TrimSuffix(data.Bytes(), []byte("\n"))
				if err := fn(Event{Name: name, Data: append([]byte(nil), payload...)}); err != nil {
					return err
				}
			}
			name = "message"
			data.Reset()
			continue
		}

		// gin пишет "event:x" без пробела
		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			data.WriteByte('\n')
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return scanner.Err()
}

func (c *Client) openStream(ctx context.Context, path, access string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	// без общего таймаута: поток живет сколько угодно
	streaming := &http.Client{Transport: c.http.Transport}
	resp, err := streaming.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}
