// Package remote talks to the clip store daemon: HTTP for commands and a
// websocket for push events.
package remote

import (
	"bytes"
	"clipboard-sync/pkg/types"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrStatus wraps every non-2xx answer from the daemon.
var ErrStatus = errors.New("unexpected status")

// Client implements gateway.Remote over the daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon at baseURL, e.g.
// "http://127.0.0.1:7890". A nil httpClient means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) ListRecent(ctx context.Context, limit int) ([]types.Clip, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var clips []types.Clip
	if err := c.do(ctx, http.MethodGet, "/api/clips?"+q.Encode(), nil, &clips); err != nil {
		return nil, err
	}
	return clips, nil
}

// SetPinned returns the clip the daemon saved, or nil for a daemon that
// answers 204.
func (c *Client) SetPinned(ctx context.Context, id int64, pinned bool) (*types.Clip, error) {
	body := struct {
		IsPinned bool `json:"is_pinned"`
	}{pinned}
	var clip types.Clip
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/clips/%d/pin", id), body, &clip); err != nil {
		return nil, err
	}
	if clip.ID == 0 {
		return nil, nil
	}
	return &clip, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/clips/%d", id), nil, nil)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/clips", nil, nil)
}

func (c *Client) CaptureCurrent(ctx context.Context) (*types.Clip, error) {
	var clip types.Clip
	if err := c.do(ctx, http.MethodPost, "/api/clips/capture", nil, &clip); err != nil {
		return nil, err
	}
	if clip.ID == 0 {
		return nil, nil
	}
	return &clip, nil
}

func (c *Client) IgnoreNext(ctx context.Context, content string) error {
	body := struct {
		Content string `json:"content"`
	}{content}
	return c.do(ctx, http.MethodPost, "/api/ignore", body, nil)
}

// Status fetches the daemon's health endpoint.
func (c *Client) Status(ctx context.Context) (map[string]string, error) {
	var status map[string]string
	if err := c.do(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, msg)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
