package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"panda-assistant/internal/domain"
	"panda-assistant/internal/integrations/httpjson"
	"panda-assistant/internal/integrations/paramstore"
)

const defaultBaseURL = "https://api.openai.com/v1"

// chatRequest is the minimal request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int                `json:"index"`
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged bool `json:"flagged"`
	} `json:"results"`
}

// Client is a focused OpenAI-compatible client used when no built-in command matches.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	token       paramstore.TokenSource
	temperature float64
	maxTokens   int
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose bearer token comes from token. The token is
// resolved on the first request.
func NewClient(token paramstore.TokenSource, opts ...Option) (*Client, error) {
	if token == nil {
		return nil, errors.New("openai: token source must not be nil")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: httpjson.DefaultTimeout},
		token:       token,
		temperature: 0.4,
		maxTokens:   256,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func endpointURL(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + path
	}
	return base + "/v1" + path
}

func (c *Client) authHeader(ctx context.Context) (map[string]string, error) {
	apiKey, err := c.token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: resolve api key: %w", err)
	}
	return map[string]string{"Authorization": "Bearer " + apiKey}, nil
}

// Chat returns the assistant text of the first choice.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	if model == "" {
		return "", errors.New("openai: model must not be empty")
	}
	headers, err := c.authHeader(ctx)
	if err != nil {
		return "", err
	}

	temp := c.temperature
	raw, err := httpjson.PostJSON(ctx, c.httpClient, endpointURL(c.baseURL, "/chat/completions"), chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   c.maxTokens,
	}, headers)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}

// Moderate calls the Moderations API and returns true if the input is flagged.
func (c *Client) Moderate(ctx context.Context, input string) (bool, error) {
	headers, err := c.authHeader(ctx)
	if err != nil {
		return false, err
	}

	raw, err := httpjson.PostJSON(ctx, c.httpClient, endpointURL(c.baseURL, "/moderations"), moderationRequest{Input: input}, headers)
	if err != nil {
		return false, fmt.Errorf("openai: moderation request failed: %w", err)
	}

	var payload moderationResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false, fmt.Errorf("openai: decode moderation response: %w", err)
	}
	if len(payload.Results) == 0 {
		return false, errors.New("openai: no results in moderation response")
	}
	return payload.Results[0].Flagged, nil
}
