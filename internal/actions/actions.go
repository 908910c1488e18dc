// Package actions implements the assistant features that run locally without
// asking the interpreter.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"panda-assistant/internal/dispatcher"
	"panda-assistant/internal/localstore"
	"panda-assistant/internal/theme"
)

const (
	Greeting        = "Hello! Welcome to your Panda Virtual Assistant. How can I help you today?"
	joke            = "Why don't scientists trust atoms? Because they make up everything!"
	calendarEvents  = "Your upcoming events are: Meeting at 2 PM, Dinner with family at 6 PM"
	browserURL      = "https://www.google.com"
	musicURL        = "https://youtu.be/6d5SS0gS5bU?si=S-IAHC8K5Rw060nT"
	ReminderLayout  = "2006-01-02T15:04"
	reminderDisplay = "1/2/2006, 3:04:05 PM"
)

const (
	invalidTimerMsg       = "Please enter a valid number of seconds."
	incompleteReminderMsg = "Please fill in both fields."
	invalidTimeMsg        = "Please enter the time as YYYY-MM-DDTHH:MM."
)

var (
	ErrInvalidTimer       = errors.New("actions: timer needs a positive number of seconds")
	ErrIncompleteReminder = errors.New("actions: reminder needs a message and a time")
	ErrInvalidTime        = errors.New("actions: reminder time is not YYYY-MM-DDTHH:MM")
)

type Display interface {
	Show(text string)
}

type Speaker interface {
	Speak(text string)
	SetVolume(v int) int
}

type Submitter interface {
	Submit(ctx context.Context, command string) (dispatcher.Response, bool)
}

type Store interface {
	Reminders(ctx context.Context) ([]localstore.Reminder, error)
	SaveReminders(ctx context.Context, rems []localstore.Reminder) error
	SetTheme(ctx context.Context, name string) error
}

type Actions struct {
	display   Display
	speaker   Speaker
	submitter Submitter
	store     Store
	logger    *slog.Logger

	now           func() time.Time
	timerUnit     time.Duration
	calendarDelay time.Duration
	open          func(url string) error
	onTheme       func(theme.Theme)

	mu     sync.Mutex
	timers []*time.Timer
}

type Option func(*Actions)

func WithClock(now func() time.Time) Option {
	return func(a *Actions) { a.now = now }
}

// WithTimerUnit sets what one timer "second" lasts.
func WithTimerUnit(d time.Duration) Option {
	return func(a *Actions) { a.timerUnit = d }
}

func WithCalendarDelay(d time.Duration) Option {
	return func(a *Actions) { a.calendarDelay = d }
}

func WithOpener(open func(url string) error) Option {
	return func(a *Actions) { a.open = open }
}

// WithThemeHook is called after a theme switch is saved.
func WithThemeHook(fn func(theme.Theme)) Option {
	return func(a *Actions) { a.onTheme = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Actions) { a.logger = logger }
}

// New wires the local actions. speaker may be nil when speech is unavailable.
func New(display Display, speaker Speaker, submitter Submitter, store Store, opts ...Option) (*Actions, error) {
	if display == nil {
		return nil, errors.New("actions: display must not be nil")
	}
	if submitter == nil {
		return nil, errors.New("actions: submitter must not be nil")
	}
	if store == nil {
		return nil, errors.New("actions: store must not be nil")
	}
	a := &Actions{
		display:       display,
		speaker:       speaker,
		submitter:     submitter,
		store:         store,
		logger:        slog.Default(),
		now:           time.Now,
		timerUnit:     time.Second,
		calendarDelay: time.Second,
		open:          OpenURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Actions) say(text string) {
	a.display.Show(text)
	if a.speaker != nil {
		a.speaker.Speak(text)
	}
}

func (a *Actions) after(d time.Duration, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timers = append(a.timers, time.AfterFunc(d, fn))
}

// Close cancels pending timers, calendar lookups and reminder alerts.
func (a *Actions) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.timers {
		t.Stop()
	}
	a.timers = nil
}

func (a *Actions) Greet() {
	a.say(Greeting)
}

func (a *Actions) ShowDate() {
	a.say("Today's date is: " + a.now().Format("2006-01-02"))
}

func (a *Actions) TellJoke() {
	a.say(joke)
}

func (a *Actions) CheckTime() {
	a.display.Show("Current time is: " + a.now().Format("3:04:05 PM"))
}

func (a *Actions) CheckWeather() {
	a.display.Show("Weather is Sunny.")
}

// StartTimer announces the timer and alerts when it runs out.
func (a *Actions) StartTimer(seconds int) error {
	if seconds <= 0 {
		a.display.Show(invalidTimerMsg)
		return ErrInvalidTimer
	}
	a.say(fmt.Sprintf("Timer set for %d seconds.", seconds))
	a.after(time.Duration(seconds)*a.timerUnit, func() {
		a.display.Show("Timer completed.")
		if a.speaker != nil {
			a.speaker.Speak("Time's up!")
		}
	})
	return nil
}

func (a *Actions) CheckCalendar() {
	a.say("Fetching calendar events...")
	a.after(a.calendarDelay, func() {
		a.say(calendarEvents)
	})
}

func (a *Actions) SetTheme(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	th, ok := theme.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown theme %q, choose one of: %s", name, strings.Join(theme.Names(), ", "))
	}
	if err := a.store.SetTheme(ctx, th.Name); err != nil {
		return err
	}
	if a.onTheme != nil {
		a.onTheme(th)
	}
	a.display.Show("Theme switched to " + th.Name + ".")
	return nil
}

func (a *Actions) SetVolume(v int) {
	if a.speaker != nil {
		v = a.speaker.SetVolume(v)
	}
	a.say(fmt.Sprintf("Volume set to %d", v))
}

func (a *Actions) OpenBrowser() {
	a.openLink(browserURL)
}

func (a *Actions) PlayMusic() {
	a.openLink(musicURL)
}

// OpenLink opens a link the interpreter sent along with its reply.
func (a *Actions) OpenLink(url string) {
	if url != "" {
		a.openLink(url)
	}
}

func (a *Actions) openLink(url string) {
	if err := a.open(url); err != nil {
		a.logger.Warn("open link", "url", url, "err", err)
		a.display.Show("Open this link: " + url)
	}
}

// Cards send a fixed command through the dispatcher.

func (a *Actions) WeatherCard(ctx context.Context) dispatcher.Response {
	return a.card(ctx, "weather info", "Fetching weather info...")
}

func (a *Actions) NewsCard(ctx context.Context) dispatcher.Response {
	return a.card(ctx, "news updates", "Fetching news updates...")
}

func (a *Actions) QuoteCard(ctx context.Context) dispatcher.Response {
	return a.card(ctx, "quote of the day", "Fetching quote of the day...")
}

func (a *Actions) card(ctx context.Context, command, loading string) dispatcher.Response {
	a.display.Show(loading)
	resp, _ := a.submitter.Submit(ctx, command)
	return resp
}

// OpenURL hands url to the desktop's default handler.
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
