// Package wikipedia looks up article summaries through the Wikipedia REST API.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"panda-assistant/internal/integrations/httpjson"
)

const (
	defaultBaseURL   = "https://en.wikipedia.org/api/rest_v1"
	defaultUserAgent = "AssistantBot/1.0"
)

// ErrNotFound is returned when no article exists for the search term.
var ErrNotFound = errors.New("wikipedia: article not found")

type Summary struct {
	Title   string
	Extract string
}

type summaryResponse struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(opts ...Option) *Client {
	c := &Client{baseURL: defaultBaseURL, userAgent: defaultUserAgent}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summary returns the lead section of the article titled term.
func (c *Client) Summary(ctx context.Context, term string) (Summary, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Summary{}, errors.New("wikipedia: term must not be empty")
	}
	title := url.PathEscape(strings.ReplaceAll(term, " ", "_"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/page/summary/"+title, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("wikipedia: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	raw, err := httpjson.Do(c.httpClient, req)
	if err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return Summary{}, ErrNotFound
		}
		return Summary{}, fmt.Errorf("wikipedia: request failed: %w", err)
	}

	var payload summaryResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Summary{}, fmt.Errorf("wikipedia: decode response: %w", err)
	}
	if strings.TrimSpace(payload.Extract) == "" {
		return Summary{}, ErrNotFound
	}
	return Summary{Title: payload.Title, Extract: payload.Extract}, nil
}
