package dispatcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"panda-assistant/internal/integrations/commandapi"
	"panda-assistant/internal/integrations/httpjson"
	"panda-assistant/internal/localstore"
)

type memStore struct {
	mu       sync.Mutex
	entries  []string
	saves    int
	saveErr  error
	clearErr error
}

func (m *memStore) LoadHistory(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...), nil
}

func (m *memStore) SaveHistory(_ context.Context, entries []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.entries = append([]string(nil), entries...)
	return nil
}

func (m *memStore) ClearHistory(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.entries = nil
	return nil
}

type recordingSpeaker struct {
	mu    sync.Mutex
	spoke []string
}

func (r *recordingSpeaker) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoke = append(r.spoke, text)
}

func (r *recordingSpeaker) said() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoke...)
}

type funcSender func(ctx context.Context, command string) (commandapi.Reply, error)

func (f funcSender) Send(ctx context.Context, command string) (commandapi.Reply, error) {
	return f(ctx, command)
}

func replyWith(text string) funcSender {
	return func(context.Context, string) (commandapi.Reply, error) {
		return commandapi.Reply{Text: text}, nil
	}
}

type harness struct {
	d       *Dispatcher
	session *Session
	store   *memStore
	speaker *recordingSpeaker
	display *bytes.Buffer
}

func newHarness(t *testing.T, sender CommandSender, opts ...Option) *harness {
	t.Helper()
	h := &harness{store: &memStore{}, speaker: &recordingSpeaker{}, display: &bytes.Buffer{}}
	h.session = NewSession(context.Background(), h.store, h.display)
	d, err := New(sender, h.session, h.speaker, opts...)
	require.NoError(t, err)
	h.d = d
	return h
}

func TestNew_Validation(t *testing.T) {
	s := NewSession(context.Background(), nil, nil)
	_, err := New(nil, s, nil)
	require.Error(t, err)
	_, err = New(replyWith("x"), nil, nil)
	require.Error(t, err)
}

func TestSubmit_QuoteOfTheDayEndToEnd(t *testing.T) {
	var requests int32
	bodies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		raw, _ := io.ReadAll(r.Body)
		bodies <- string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"response":"Stay hungry, stay foolish."}`)
	}))
	defer srv.Close()

	client, err := commandapi.NewClient(srv.URL)
	require.NoError(t, err)
	h := newHarness(t, client)

	resp, ok := h.d.Submit(context.Background(), "quote of the day")
	require.True(t, ok)
	require.False(t, resp.Failed)
	require.Equal(t, "Stay hungry, stay foolish.", resp.Text)
	require.Equal(t, int32(1), atomic.LoadInt32(&requests))
	require.Equal(t, `{"command":"quote of the day"}`, <-bodies)
	require.Equal(t, []string{"Stay hungry, stay foolish."}, h.session.Entries())
	require.Equal(t, []string{"Stay hungry, stay foolish."}, h.speaker.said())
	require.Equal(t, "Stay hungry, stay foolish.\n", h.display.String())
	require.Equal(t, []string{"Stay hungry, stay foolish."}, h.store.entries)
}

func TestSubmit_BlankInputIsIgnored(t *testing.T) {
	var calls int32
	h := newHarness(t, funcSender(func(context.Context, string) (commandapi.Reply, error) {
		atomic.AddInt32(&calls, 1)
		return commandapi.Reply{Text: "x"}, nil
	}))

	for _, in := range []string{"", "   ", "\t\n"} {
		resp, ok := h.d.Submit(context.Background(), in)
		require.False(t, ok)
		require.Equal(t, Response{}, resp)
	}
	require.Zero(t, atomic.LoadInt32(&calls))
	require.Empty(t, h.session.Entries())
	require.Empty(t, h.speaker.said())
	require.Empty(t, h.display.String())
}

func TestSubmit_SendsTrimmedCommand(t *testing.T) {
	var got string
	h := newHarness(t, funcSender(func(_ context.Context, command string) (commandapi.Reply, error) {
		got = command
		return commandapi.Reply{Text: "ok"}, nil
	}))
	_, ok := h.d.Submit(context.Background(), "  what time is it  ")
	require.True(t, ok)
	require.Equal(t, "what time is it", got)
}

func TestSubmit_EveryCommandYieldsExactlyOneEntry(t *testing.T) {
	outcomes := map[string]funcSender{
		"ok":    replyWith("fine"),
		"empty": replyWith(""),
		"status": func(context.Context, string) (commandapi.Reply, error) {
			return commandapi.Reply{}, &httpjson.StatusError{StatusCode: 500}
		},
		"network": func(context.Context, string) (commandapi.Reply, error) {
			return commandapi.Reply{}, errors.New("connection refused")
		},
		"bad json": func(context.Context, string) (commandapi.Reply, error) {
			return commandapi.Reply{}, commandapi.ErrMalformedReply
		},
	}
	for name, sender := range outcomes {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, sender)
			for i := 1; i <= 3; i++ {
				_, ok := h.d.Submit(context.Background(), "hello")
				require.True(t, ok)
				require.Len(t, h.session.Entries(), i)
				require.Len(t, h.speaker.said(), i)
			}
		})
	}
}

func TestSubmit_FailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "status", err: &httpjson.StatusError{StatusCode: 503}, want: "An error occurred: Network response was not ok: 503"},
		{name: "malformed", err: commandapi.ErrMalformedReply, want: "An error occurred: Response was not valid JSON"},
		{name: "network", err: errors.New("dial tcp: connection refused"), want: "An error occurred: Failed to fetch"},
		{name: "deadline from transport", err: context.DeadlineExceeded, want: TimeoutMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, funcSender(func(context.Context, string) (commandapi.Reply, error) {
				return commandapi.Reply{}, tt.err
			}))
			resp, ok := h.d.Submit(context.Background(), "news updates")
			require.True(t, ok)
			require.True(t, resp.Failed)
			require.Equal(t, tt.want, resp.Text)
			require.Equal(t, []string{tt.want}, h.session.Entries())
			require.Equal(t, []string{tt.want}, h.speaker.said())
		})
	}
}

func TestSubmit_PlaceholderForMissingResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	client, err := commandapi.NewClient(srv.URL)
	require.NoError(t, err)
	h := newHarness(t, client)

	resp, ok := h.d.Submit(context.Background(), "hello")
	require.True(t, ok)
	require.False(t, resp.Failed)
	require.Equal(t, "No response received.", resp.Text)
	require.Equal(t, []string{"No response received."}, h.session.Entries())
}

func TestSubmit_TimeoutWinsOverLateReply(t *testing.T) {
	release := make(chan struct{})
	lateSent := make(chan struct{})
	h := newHarness(t, funcSender(func(context.Context, string) (commandapi.Reply, error) {
		// Ignores cancellation and answers after the deadline.
		<-release
		defer close(lateSent)
		return commandapi.Reply{Text: "too late"}, nil
	}), WithTimeout(20*time.Millisecond))

	resp, ok := h.d.Submit(context.Background(), "tell me a story")
	require.True(t, ok)
	require.True(t, resp.Failed)
	require.Equal(t, TimeoutMessage, resp.Text)

	close(release)
	<-lateSent
	time.Sleep(10 * time.Millisecond)

	require.Equal(t, []string{TimeoutMessage}, h.session.Entries())
	require.Equal(t, []string{TimeoutMessage}, h.speaker.said())
}

func TestSubmit_TimeoutOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
			_, _ = io.WriteString(w, `{"response":"too late"}`)
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client, err := commandapi.NewClient(srv.URL)
	require.NoError(t, err)
	h := newHarness(t, client, WithTimeout(30*time.Millisecond))

	resp, ok := h.d.Submit(context.Background(), "hello")
	require.True(t, ok)
	require.Equal(t, TimeoutMessage, resp.Text)
}

func TestSubmit_ConcurrentSubmissionsAreSerialized(t *testing.T) {
	var active, maxActive int32
	h := newHarness(t, funcSender(func(_ context.Context, command string) (commandapi.Reply, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return commandapi.Reply{Text: "re: " + command}, nil
	}))

	const n = 8
	var wg sync.WaitGroup
	var accepted int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := h.d.Submit(context.Background(), "hello"); ok {
				atomic.AddInt32(&accepted, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(n), atomic.LoadInt32(&accepted))
	require.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	require.Len(t, h.session.Entries(), n)
	require.Len(t, h.speaker.said(), n)
}

func TestSubmit_IndicatorStaysOutOfTranscript(t *testing.T) {
	var states []bool
	h := newHarness(t, replyWith("done"), WithIndicator(func(loading bool) {
		states = append(states, loading)
	}))

	_, ok := h.d.Submit(context.Background(), "hello")
	require.True(t, ok)
	require.Equal(t, []bool{true, false}, states)
	require.Equal(t, []string{"done"}, h.session.Entries())
	require.NotContains(t, h.display.String(), "Loading")
}

func TestSubmit_ReturnsURL(t *testing.T) {
	h := newHarness(t, funcSender(func(context.Context, string) (commandapi.Reply, error) {
		return commandapi.Reply{Text: "Opening Github.", URL: "https://www.github.com"}, nil
	}))
	resp, ok := h.d.Submit(context.Background(), "open github")
	require.True(t, ok)
	require.Equal(t, "https://www.github.com", resp.URL)
	require.Equal(t, []string{"Opening Github."}, h.session.Entries())
}

func TestSubmit_CancelledParent(t *testing.T) {
	h := newHarness(t, funcSender(func(ctx context.Context, _ string) (commandapi.Reply, error) {
		<-ctx.Done()
		return commandapi.Reply{}, ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, ok := h.d.Submit(ctx, "hello")
	require.True(t, ok)
	require.True(t, strings.HasPrefix(resp.Text, "An error occurred: "))
	require.Len(t, h.session.Entries(), 1)
}

func TestSubmit_CancelledParentIsStillPersisted(t *testing.T) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "assistant.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	session := NewSession(context.Background(), store, nil)
	d, err := New(funcSender(func(ctx context.Context, _ string) (commandapi.Reply, error) {
		<-ctx.Done()
		return commandapi.Reply{}, ctx.Err()
	}), session, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, ok := d.Submit(ctx, "hello")
	require.True(t, ok)
	require.Equal(t, "An error occurred: Request was cancelled", resp.Text)

	reloaded := NewSession(context.Background(), store, nil)
	require.Equal(t, []string{"An error occurred: Request was cancelled"}, reloaded.Entries())
}
