package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"panda-assistant/internal/integrations/httpjson"
	"panda-assistant/internal/integrations/paramstore"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(paramstore.StaticToken("owm-key"), WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestCurrent_HappyPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/weather", r.URL.Path)
		require.Equal(t, "pune", r.URL.Query().Get("q"))
		require.Equal(t, "owm-key", r.URL.Query().Get("appid"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{"name":"Pune","main":{"temp":27.5},"weather":[{"description":"scattered clouds"}]}`))
	})

	got, err := c.Current(context.Background(), "pune")
	require.NoError(t, err)
	require.Equal(t, Conditions{City: "Pune", TempC: 27.5, Description: "scattered clouds"}, got)
}

func TestCurrent_NameFallsBackToQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"main":{"temp":1},"weather":[{"description":"snow"}]}`))
	})
	got, err := c.Current(context.Background(), "oslo")
	require.NoError(t, err)
	require.Equal(t, "oslo", got.City)
}

func TestCurrent_NoConditions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cod":200}`))
	})
	_, err := c.Current(context.Background(), "nowhere")
	require.ErrorIs(t, err, ErrNoData)
}

func TestCurrent_CityNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})
	_, err := c.Current(context.Background(), "atlantis")
	var statusErr *httpjson.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.NotContains(t, err.Error(), "owm-key")
}

func TestCurrent_Validation(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)

	c, err := NewClient(paramstore.StaticToken("k"))
	require.NoError(t, err)
	_, err = c.Current(context.Background(), " ")
	require.ErrorContains(t, err, "city")
}
