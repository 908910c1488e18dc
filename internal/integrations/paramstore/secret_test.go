package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	val   string
	err   error
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.val, f.err
}

func TestSecret_FetchedOnce(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-ssm"}`}
	s := NewSecret(g, "/panda/open-ai-token")

	for i := 0; i < 3; i++ {
		tok, err := s.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "sk-from-ssm", tok)
	}
	require.Equal(t, 1, g.calls, "SSM must only be called once per process lifetime")
}

func TestSecret_FailureIsRetried(t *testing.T) {
	g := &fakeGetter{err: errors.New("ssm unavailable")}
	s := NewSecret(g, "/panda/news-api-key")

	_, err := s.Token(context.Background())
	require.Error(t, err)

	g.err = nil
	g.val = `{"token":"ok"}`
	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", tok)
	require.Equal(t, 2, g.calls)
}

func TestFetchToken(t *testing.T) {
	cases := []struct {
		name    string
		getter  Getter
		param   string
		want    string
		wantErr string
	}{
		{name: "json token", getter: &fakeGetter{val: `{"token":"k"}`}, param: "/p", want: "k"},
		{name: "missing field", getter: &fakeGetter{val: `{"other":"v"}`}, param: "/p", wantErr: "is empty"},
		{name: "malformed", getter: &fakeGetter{val: `{"broken`}, param: "/p", wantErr: "unmarshal"},
		{name: "getter error", getter: &fakeGetter{err: errors.New("ssm down")}, param: "/p", wantErr: "ssm down"},
		{name: "nil getter", getter: nil, param: "/p", wantErr: "nil"},
		{name: "empty name", getter: &fakeGetter{val: `{"token":"k"}`}, param: " ", wantErr: "empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FetchToken(context.Background(), tc.getter, tc.param)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("x").Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "x", tok)

	_, err = StaticToken("").Token(context.Background())
	require.Error(t, err)
}
