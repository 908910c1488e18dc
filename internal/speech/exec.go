package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// waitDelay bounds how long a killed engine's children may hold its pipes open.
const waitDelay = 500 * time.Millisecond

// ErrNoSpeech is returned when the recognizer heard nothing.
var ErrNoSpeech = errors.New("speech: no speech recognized")

// ExecSynthesizer speaks through an espeak-ng compatible command line.
// The process is killed when the utterance is cancelled.
type ExecSynthesizer struct {
	Path string
	Args []string
}

func NewExecSynthesizer(path string, args ...string) *ExecSynthesizer {
	if path == "" {
		path = "espeak-ng"
	}
	return &ExecSynthesizer{Path: path, Args: args}
}

func (s *ExecSynthesizer) Say(ctx context.Context, text string, volume int) error {
	// espeak-ng amplitude runs 0-200.
	args := append(append([]string{}, s.Args...), "-a", strconv.Itoa(volume*2), "--", text)
	cmd := exec.CommandContext(ctx, s.Path, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("speech: %s: %w: %s", s.Path, err, msg)
		}
		return fmt.Errorf("speech: %s: %w", s.Path, err)
	}
	return nil
}

// ExecRecognizer runs a speech-to-text command that records one utterance and
// prints the transcript on stdout.
type ExecRecognizer struct {
	Path string
	Args []string
}

func NewExecRecognizer(path string, args ...string) *ExecRecognizer {
	return &ExecRecognizer{Path: path, Args: args}
}

func (r *ExecRecognizer) Listen(ctx context.Context) (string, error) {
	if r.Path == "" {
		return "", errors.New("speech: recognizer command is not configured")
	}
	cmd := exec.CommandContext(ctx, r.Path, r.Args...)
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("speech: %s: %w", r.Path, err)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
