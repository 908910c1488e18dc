package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// tokenPayload is the JSON shape stored in SSM for API tokens.
type tokenPayload struct {
	Token string `json:"token"`
}

// TokenSource yields an API token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Secret fetches a {"token": "..."} parameter on first use. A failed fetch is not
// cached, so the next call tries SSM again.
type Secret struct {
	getter Getter
	name   string

	mu    sync.Mutex
	token string
}

func NewSecret(g Getter, name string) *Secret {
	return &Secret{getter: g, name: strings.TrimSpace(name)}
}

// Name returns the full parameter name.
func (s *Secret) Name() string { return s.name }

func (s *Secret) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	tok, err := FetchToken(ctx, s.getter, s.name)
	if err != nil {
		return "", err
	}
	s.token = tok
	return tok, nil
}

// FetchToken reads name from g and decodes its {"token"} payload.
func FetchToken(ctx context.Context, g Getter, name string) (string, error) {
	if g == nil {
		return "", errors.New("paramstore: getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: token parameter name is empty")
	}

	raw, err := g.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch token: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("paramstore: token %q is empty", name)
	}
	return tp.Token, nil
}

// StaticToken is a TokenSource for a fixed value.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("paramstore: static token is empty")
	}
	return string(t), nil
}
