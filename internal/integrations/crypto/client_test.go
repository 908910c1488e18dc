package crypto

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"panda-assistant/internal/integrations/httpjson"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestPriceUSD_HappyPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simple/price", r.URL.Path)
		require.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		require.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3120.55}}`))
	})
	price, err := c.PriceUSD(context.Background(), "Ethereum")
	require.NoError(t, err)
	require.InDelta(t, 3120.55, price, 1e-9)
}

func TestPriceUSD_UnknownCoin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := c.PriceUSD(context.Background(), "bitcoin")
	require.ErrorIs(t, err, ErrUnknownCoin)
}

func TestPriceUSD_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.PriceUSD(context.Background(), "bitcoin")
	var statusErr *httpjson.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestPriceUSD_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":`))
	})
	_, err := c.PriceUSD(context.Background(), "bitcoin")
	require.ErrorContains(t, err, "decode response")
}

func TestPriceUSD_NonNumericPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":"n/a"}}`))
	})
	_, err := c.PriceUSD(context.Background(), "bitcoin")
	require.ErrorIs(t, err, ErrUnknownCoin)
}

func TestPriceUSD_EmptyCoin(t *testing.T) {
	_, err := NewClient().PriceUSD(context.Background(), "")
	require.Error(t, err)
}
