package dispatcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// HistoryStore persists the transcript as one ordered list.
type HistoryStore interface {
	LoadHistory(ctx context.Context) ([]string, error)
	SaveHistory(ctx context.Context, entries []string) error
	ClearHistory(ctx context.Context) error
}

// Session owns the transcript. Entries are only ever appended; Clear drops
// all of them at once.
type Session struct {
	store   HistoryStore
	display io.Writer
	logger  *slog.Logger

	mu      sync.Mutex
	style   func(string) string
	entries []string
}

type SessionOption func(*Session)

func WithStyle(style func(string) string) SessionOption {
	return func(s *Session) { s.style = style }
}

func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession loads the persisted transcript and renders it to display. A nil
// store keeps the transcript in memory only.
func NewSession(ctx context.Context, store HistoryStore, display io.Writer, opts ...SessionOption) *Session {
	if display == nil {
		display = io.Discard
	}
	s := &Session{store: store, display: display, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if store != nil {
		entries, err := store.LoadHistory(ctx)
		if err != nil {
			s.logger.Warn("discarding unreadable transcript", "err", err)
		} else {
			s.entries = entries
		}
	}
	s.mu.Lock()
	for _, e := range s.entries {
		s.writeLocked(e)
	}
	s.mu.Unlock()
	return s
}

// Append renders text as a new entry and persists the whole transcript.
func (s *Session) Append(ctx context.Context, text string) {
	s.mu.Lock()
	s.entries = append(s.entries, text)
	s.writeLocked(text)
	snapshot := append([]string(nil), s.entries...)
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	// The entry is already on screen; keep it on disk even if ctx was cancelled.
	if err := s.store.SaveHistory(context.WithoutCancel(ctx), snapshot); err != nil {
		s.logger.Warn("persist transcript", "err", err)
	}
}

// Show renders a line that is not part of the transcript.
func (s *Session) Show(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked(text)
}

func (s *Session) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes every entry and the persisted list. Entries stay in memory
// when the store cannot be cleared.
func (s *Session) Clear(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.ClearHistory(ctx); err != nil {
			return fmt.Errorf("dispatcher: clear transcript: %w", err)
		}
	}

	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return nil
}

// SetStyle changes how lines are rendered from now on.
func (s *Session) SetStyle(style func(string) string) {
	s.mu.Lock()
	s.style = style
	s.mu.Unlock()
}

func (s *Session) writeLocked(text string) {
	if s.style != nil {
		text = s.style(text)
	}
	_, _ = fmt.Fprintln(s.display, text)
}
