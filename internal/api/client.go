package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://ai.rosmerta.dev/expense/api"

var (
	// ErrUnauthorized means the server rejected the bearer token. Callers
	// treat this as a forced-logout signal.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrNotFound maps 404 responses.
	ErrNotFound = errors.New("api: not found")
)

// TokenSource yields the current bearer token, or "" when logged out.
type TokenSource func() string

// Client talks to the remote expense API. All methods are safe for concurrent
// use; the client itself holds no mutable state.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	token TokenSource
	log   *zap.Logger
}

func NewClient(baseURL string, token TokenSource, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		token:   token,
		log:     log,
	}
}

// do issues one JSON request. A non-nil in is marshalled as the body; a
// non-nil out receives the decoded response. 401 maps to ErrUnauthorized
// regardless of endpoint.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.log.Warn("unauthorized response", zap.String("path", path))
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		msg := readErrorMessage(resp.Body)
		if msg != "" {
			return fmt.Errorf("api: %s %s: status %d: %s", method, path, resp.StatusCode, msg)
		}
		return fmt.Errorf("api: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

// readErrorMessage pulls a human-readable message out of an error body when
// the server provides one.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil {
		for _, s := range []string{payload.Message, payload.Error, payload.Detail} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(data))
}
