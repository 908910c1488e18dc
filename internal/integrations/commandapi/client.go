// Package commandapi talks to the remote interpreter behind POST /voice-command.
package commandapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"panda-assistant/internal/integrations/httpjson"
)

const (
	// Placeholder replaces a missing, empty or non-string response field.
	Placeholder = "No response received."
	commandPath = "/voice-command"
)

// ErrMalformedReply is returned when a 2xx body is not JSON at all.
var ErrMalformedReply = errors.New("commandapi: reply is not valid JSON")

// Reply is the interpreter's answer to one command.
type Reply struct {
	Text string
	// URL is set when the interpreter wants the user to open a link.
	URL string
}

type commandRequest struct {
	Command string `json:"command"`
}

type Client struct {
	url        string
	httpClient *http.Client
	sessionID  string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = strings.TrimSpace(id) }
}

// NewClient accepts either the interpreter's base URL or the full endpoint URL.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("commandapi: endpoint must not be empty")
	}
	if !strings.HasSuffix(endpoint, commandPath) {
		endpoint += commandPath
	}
	c := &Client{url: endpoint}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Send posts one command and reads the reply. Any JSON body is accepted; only a
// non-empty string "response" field is used as the text.
func (c *Client) Send(ctx context.Context, command string) (Reply, error) {
	var headers map[string]string
	if c.sessionID != "" {
		headers = map[string]string{"X-Session-Id": c.sessionID}
	}

	raw, err := httpjson.PostJSON(ctx, c.httpClient, c.url, commandRequest{Command: command}, headers)
	if err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) {
			return Reply{}, err
		}
		return Reply{}, fmt.Errorf("commandapi: request failed: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return Reply{}, ErrMalformedReply
	}

	reply := Reply{Text: Placeholder}
	if r := gjson.GetBytes(raw, "response"); r.Type == gjson.String && r.Str != "" {
		reply.Text = r.Str
	}
	if u := gjson.GetBytes(raw, "url"); u.Type == gjson.String {
		reply.URL = u.Str
	}
	return reply, nil
}
