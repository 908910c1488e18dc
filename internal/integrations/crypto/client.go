// Package crypto quotes coin prices from the CoinGecko simple price API.
package crypto

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"panda-assistant/internal/integrations/httpjson"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrUnknownCoin is returned when the upstream has no price for the coin.
var ErrUnknownCoin = errors.New("crypto: no price for coin")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(opts ...Option) *Client {
	c := &Client{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PriceUSD returns the current USD price of coin (a CoinGecko id such as "bitcoin").
func (c *Client) PriceUSD(ctx context.Context, coin string) (float64, error) {
	coin = strings.ToLower(strings.TrimSpace(coin))
	if coin == "" {
		return 0, errors.New("crypto: coin must not be empty")
	}

	raw, err := httpjson.Get(ctx, c.httpClient, c.baseURL+"/simple/price", url.Values{
		"ids":           {coin},
		"vs_currencies": {"usd"},
	})
	if err != nil {
		return 0, fmt.Errorf("crypto: request failed: %w", err)
	}

	if !gjson.ValidBytes(raw) {
		return 0, errors.New("crypto: decode response: invalid json")
	}
	price := gjson.GetBytes(raw, gjson.Escape(coin)+".usd")
	if price.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCoin, coin)
	}
	return price.Float(), nil
}
