// Package speech plays assistant replies aloud and captures spoken commands.
// Both directions are best effort: a missing engine only loses audio.
package speech

import (
	"context"
	"log/slog"
	"sync"
)

const (
	DefaultVolume = 100
	maxVolume     = 100
)

// Synthesizer speaks text and returns when the utterance ends or ctx is done.
type Synthesizer interface {
	Say(ctx context.Context, text string, volume int) error
}

// Player runs at most one utterance at a time. Starting a new one stops the
// previous one first.
type Player struct {
	synth  Synthesizer
	logger *slog.Logger

	mu     sync.Mutex
	volume int
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPlayer(synth Synthesizer, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{synth: synth, logger: logger, volume: DefaultVolume}
}

// Speak starts text in the background and returns immediately.
func (p *Player) Speak(text string) {
	if p == nil || p.synth == nil || text == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	volume := p.volume

	go func() {
		defer close(done)
		defer cancel()
		if err := p.synth.Say(ctx, text, volume); err != nil && ctx.Err() == nil {
			p.logger.Warn("speech output failed", "err", err)
		}
	}()
}

// Stop silences the current utterance, if any, and waits for it to end.
func (p *Player) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Wait blocks until the current utterance finishes on its own.
func (p *Player) Wait() {
	if p == nil {
		return
	}
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Player) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
}

// SetVolume clamps v to 0-100. It applies from the next utterance.
func (p *Player) SetVolume(v int) int {
	if v < 0 {
		v = 0
	}
	if v > maxVolume {
		v = maxVolume
	}
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	return v
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}
