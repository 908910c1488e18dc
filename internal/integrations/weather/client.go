// Package weather reads current conditions from the OpenWeatherMap API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"panda-assistant/internal/integrations/httpjson"
	"panda-assistant/internal/integrations/paramstore"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// ErrNoData is returned when the upstream answers without usable conditions.
var ErrNoData = errors.New("weather: response has no conditions")

// Conditions is the current weather for a city.
type Conditions struct {
	City        string
	TempC       float64
	Description string
}

type currentResponse struct {
	Name string `json:"name"`
	Main *struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     paramstore.TokenSource
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(apiKey paramstore.TokenSource, opts ...Option) (*Client, error) {
	if apiKey == nil {
		return nil, errors.New("weather: api key source must not be nil")
	}
	c := &Client{baseURL: defaultBaseURL, apiKey: apiKey}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Current returns the metric conditions for city.
func (c *Client) Current(ctx context.Context, city string) (Conditions, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Conditions{}, errors.New("weather: city must not be empty")
	}
	key, err := c.apiKey.Token(ctx)
	if err != nil {
		return Conditions{}, fmt.Errorf("weather: resolve api key: %w", err)
	}

	raw, err := httpjson.Get(ctx, c.httpClient, c.baseURL+"/weather", url.Values{
		"q":     {city},
		"appid": {key},
		"units": {"metric"},
	})
	if err != nil {
		return Conditions{}, fmt.Errorf("weather: request failed: %w", err)
	}

	var payload currentResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Conditions{}, fmt.Errorf("weather: decode response: %w", err)
	}
	if payload.Main == nil || len(payload.Weather) == 0 {
		return Conditions{}, ErrNoData
	}
	name := payload.Name
	if name == "" {
		name = city
	}
	return Conditions{
		City:        name,
		TempC:       payload.Main.Temp,
		Description: payload.Weather[0].Description,
	}, nil
}
