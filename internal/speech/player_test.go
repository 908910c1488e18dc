package speech

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// blockingSynth holds every utterance until it is cancelled or released.
type blockingSynth struct {
	mu        sync.Mutex
	active    int
	maxActive int
	started   []string
	cancelled []string
	volumes   []int
	startedCh chan string
	release   chan struct{}
}

func newBlockingSynth() *blockingSynth {
	return &blockingSynth{startedCh: make(chan string, 10), release: make(chan struct{})}
}

func (s *blockingSynth) Say(ctx context.Context, text string, volume int) error {
	s.mu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.started = append(s.started, text)
	s.volumes = append(s.volumes, volume)
	s.mu.Unlock()
	s.startedCh <- text

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		s.mu.Lock()
		s.cancelled = append(s.cancelled, text)
		s.mu.Unlock()
		return ctx.Err()
	case <-s.release:
		return nil
	}
}

func waitStarted(t *testing.T, s *blockingSynth, want string) {
	t.Helper()
	select {
	case got := <-s.startedCh:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("utterance %q never started", want)
	}
}

func TestPlayer_NewUtterancePreemptsPrevious(t *testing.T) {
	synth := newBlockingSynth()
	p := NewPlayer(synth, nil)

	p.Speak("first")
	waitStarted(t, synth, "first")
	p.Speak("second")
	waitStarted(t, synth, "second")
	p.Speak("third")
	waitStarted(t, synth, "third")

	p.Stop()

	synth.mu.Lock()
	defer synth.mu.Unlock()
	require.Equal(t, 1, synth.maxActive)
	require.Equal(t, []string{"first", "second", "third"}, synth.started)
	require.Equal(t, []string{"first", "second", "third"}, synth.cancelled)
	require.Zero(t, synth.active)
}

func TestPlayer_WaitForNaturalEnd(t *testing.T) {
	synth := newBlockingSynth()
	p := NewPlayer(synth, nil)

	p.Speak("hello")
	waitStarted(t, synth, "hello")
	close(synth.release)
	p.Wait()

	synth.mu.Lock()
	defer synth.mu.Unlock()
	require.Empty(t, synth.cancelled)
}

func TestPlayer_IgnoresEmptyTextAndMissingEngine(t *testing.T) {
	synth := newBlockingSynth()
	p := NewPlayer(synth, nil)
	p.Speak("")
	p.Stop()
	require.Empty(t, synth.started)

	var none *Player
	none.Speak("hello")
	none.Stop()

	NewPlayer(nil, nil).Speak("hello")
}

func TestPlayer_SetVolumeClampsAndApplies(t *testing.T) {
	synth := newBlockingSynth()
	p := NewPlayer(synth, nil)
	require.Equal(t, DefaultVolume, p.Volume())

	require.Equal(t, 100, p.SetVolume(150))
	require.Equal(t, 0, p.SetVolume(-3))
	require.Equal(t, 40, p.SetVolume(40))

	p.Speak("quiet")
	waitStarted(t, synth, "quiet")
	p.Stop()

	synth.mu.Lock()
	defer synth.mu.Unlock()
	require.Equal(t, []int{40}, synth.volumes)
}
