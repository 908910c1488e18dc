// Package dispatcher sends user commands to the interpreter and turns every
// outcome into exactly one transcript entry that is also spoken.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"panda-assistant/internal/integrations/commandapi"
	"panda-assistant/internal/integrations/httpjson"
)

const (
	DefaultTimeout = 10 * time.Second
	TimeoutMessage = "Request timed out. Please try again."
)

type CommandSender interface {
	Send(ctx context.Context, command string) (commandapi.Reply, error)
}

type Speaker interface {
	Speak(text string)
}

// Response is what one submission produced. Failed entries look the same in
// the transcript; the flag is for callers only.
type Response struct {
	Text   string
	URL    string
	Failed bool
}

type Dispatcher struct {
	sender    CommandSender
	session   *Session
	speaker   Speaker
	timeout   time.Duration
	indicator func(loading bool)
	logger    *slog.Logger

	// mu serializes submissions.
	mu sync.Mutex
}

type Option func(*Dispatcher)

func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithIndicator is told when a request starts and ends.
func WithIndicator(fn func(loading bool)) Option {
	return func(d *Dispatcher) { d.indicator = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func New(sender CommandSender, session *Session, speaker Speaker, opts ...Option) (*Dispatcher, error) {
	if sender == nil {
		return nil, errors.New("dispatcher: sender must not be nil")
	}
	if session == nil {
		return nil, errors.New("dispatcher: session must not be nil")
	}
	d := &Dispatcher{
		sender:  sender,
		session: session,
		speaker: speaker,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Submit sends command and records the outcome. It reports false, without
// sending anything, when command is blank. A second Submit waits for the
// first to finish.
func (d *Dispatcher) Submit(ctx context.Context, command string) (Response, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Response{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.indicate(true)
	resp := d.roundTrip(ctx, command)
	d.indicate(false)

	d.session.Append(ctx, resp.Text)
	if d.speaker != nil {
		d.speaker.Speak(resp.Text)
	}
	return resp, true
}

type result struct {
	reply commandapi.Reply
	err   error
}

func (d *Dispatcher) roundTrip(parent context.Context, command string) Response {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	// Buffered so a reply that loses the race does not leak the goroutine.
	done := make(chan result, 1)
	go func() {
		reply, err := d.sender.Send(ctx, command)
		done <- result{reply: reply, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return d.failure(command, ctx.Err())
	case res = <-done:
	}

	if err := ctx.Err(); err != nil {
		return d.failure(command, err)
	}
	if res.err != nil {
		return d.failure(command, res.err)
	}
	text := res.reply.Text
	if text == "" {
		text = commandapi.Placeholder
	}
	return Response{Text: text, URL: res.reply.URL}
}

func (d *Dispatcher) failure(command string, err error) Response {
	d.logger.Warn("command failed", "command", command, "err", err)
	if errors.Is(err, context.DeadlineExceeded) {
		return Response{Text: TimeoutMessage, Failed: true}
	}
	return Response{Text: "An error occurred: " + reason(err), Failed: true}
}

func reason(err error) string {
	var statusErr *httpjson.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Network response was not ok: %d", statusErr.StatusCode)
	case errors.Is(err, commandapi.ErrMalformedReply):
		return "Response was not valid JSON"
	case errors.Is(err, context.Canceled):
		return "Request was cancelled"
	default:
		return "Failed to fetch"
	}
}

func (d *Dispatcher) indicate(loading bool) {
	if d.indicator != nil {
		d.indicator(loading)
	}
}
