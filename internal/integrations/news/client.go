// Package news fetches top headlines from NewsAPI.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"panda-assistant/internal/integrations/httpjson"
	"panda-assistant/internal/integrations/paramstore"
)

const (
	defaultBaseURL  = "https://newsapi.org/v2"
	defaultPageSize = 5
)

// Headline is one article title with its source.
type Headline struct {
	Title  string
	Source string
}

// APIError is a non-2xx NewsAPI answer with the message it carried.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("news: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) HTTPStatusCode() int { return e.StatusCode }

type headlinesResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title  string `json:"title"`
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     paramstore.TokenSource
	pageSize   int
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func NewClient(apiKey paramstore.TokenSource, opts ...Option) (*Client, error) {
	if apiKey == nil {
		return nil, errors.New("news: api key source must not be nil")
	}
	c := &Client{baseURL: defaultBaseURL, apiKey: apiKey, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TopHeadlines returns up to the configured page size of headlines for country.
func (c *Client) TopHeadlines(ctx context.Context, country string) ([]Headline, error) {
	key, err := c.apiKey.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("news: resolve api key: %w", err)
	}

	raw, err := httpjson.Get(ctx, c.httpClient, c.baseURL+"/top-headlines", url.Values{
		"country":  {country},
		"apiKey":   {key},
		"pageSize": {strconv.Itoa(c.pageSize)},
	})
	if err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) {
			return nil, &APIError{StatusCode: statusErr.StatusCode, Message: upstreamMessage(statusErr.Body)}
		}
		return nil, fmt.Errorf("news: request failed: %w", err)
	}

	var payload headlinesResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("news: decode response: %w", err)
	}

	out := make([]Headline, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		out = append(out, Headline{Title: a.Title, Source: a.Source.Name})
	}
	return out, nil
}

func upstreamMessage(body string) string {
	var payload headlinesResponse
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload.Message == "" {
		return "Unknown error occurred."
	}
	return payload.Message
}
