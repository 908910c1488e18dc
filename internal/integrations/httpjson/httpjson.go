// Package httpjson holds the request plumbing shared by the upstream API clients.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// StatusError captures non-2xx upstream responses with status-aware context.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ClientOrDefault returns c, or a client with DefaultTimeout when c is nil.
func ClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// Get issues a GET for base with the given query and returns the raw body.
func Get(ctx context.Context, c *http.Client, base string, query url.Values) ([]byte, error) {
	u := base
	if len(query) > 0 {
		u = base + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return Do(c, req)
}

// PostJSON marshals payload and POSTs it to u with the given extra headers.
func PostJSON(ctx context.Context, c *http.Client, u string, payload any, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return Do(c, req)
}

// Do sends req and returns the bounded body of a 2xx response, or a *StatusError.
func Do(c *http.Client, req *http.Request) ([]byte, error) {
	res, err := ClientOrDefault(c).Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: res.StatusCode,
			URL:        withoutQuery(req.URL),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// withoutQuery drops the query string, which carries API keys for some upstreams.
func withoutQuery(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}
