package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"panda-assistant/internal/actions"
	"panda-assistant/internal/dispatcher"
	"panda-assistant/internal/integrations/commandapi"
	"panda-assistant/internal/localstore"
	"panda-assistant/internal/netproxy"
	"panda-assistant/internal/speech"
	"panda-assistant/internal/theme"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const helpText = `Type a command and press Enter, or use:
  /voice               speak a command
  /date /time /joke    local answers
  /sunny               quick local weather
  /timer N             timer for N seconds
  /calendar            upcoming events
  /theme NAME          default, cool-blue, warm-orange, vibrant-purple
  /volume N            speech volume 0-100
  /remind TIME MSG     TIME as YYYY-MM-DDTHH:MM
  /reminders           list saved reminders
  /weather /news /quote
  /browser /music      open links
  /history /clear      show or clear the transcript
  /help /quit`

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	endpoint := cli.StringP("endpoint", "u", "http://localhost:8080", "Interpreter base URL (ASSISTANT_ENDPOINT)")
	dbPath := cli.StringP("db", "d", "assistant.db", "Local state database (ASSISTANT_DB)")
	ttsPath := cli.String("tts", "espeak-ng", "Speech synthesizer command (ASSISTANT_TTS)")
	sttPath := cli.String("stt", "", "Speech recognizer command (ASSISTANT_STT)")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS5 proxy address (ASSISTANT_PROXY)")
	timeout := cli.DurationP("timeout", "t", dispatcher.DefaultTimeout, "Command timeout")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	volume := cli.Int("volume", speech.DefaultVolume, "Speech volume 0-100")
	themeName := cli.String("theme", "", "Theme, saved for next time")
	mute := cli.Bool("mute", false, "Disable speech output")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}
	*endpoint = setting("endpoint", "ASSISTANT_ENDPOINT", *endpoint)
	*dbPath = setting("db", "ASSISTANT_DB", *dbPath)
	*ttsPath = setting("tts", "ASSISTANT_TTS", *ttsPath)
	*sttPath = setting("stt", "ASSISTANT_STT", *sttPath)
	*proxyAddr = setting("proxy", "ASSISTANT_PROXY", *proxyAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := localstore.Open(*dbPath)
	if err != nil {
		log.Error("Failed to open local state", "path", *dbPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	sessionID, err := store.SessionID(ctx)
	if err != nil {
		log.Error("Failed to load session id", "err", err)
		os.Exit(1)
	}

	httpClient, err := netproxy.NewClient(*proxyAddr, *timeout)
	if err != nil {
		log.Error("Failed to set up proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}
	client, err := commandapi.NewClient(*endpoint,
		commandapi.WithHTTPClient(httpClient),
		commandapi.WithSessionID(sessionID),
	)
	if err != nil {
		log.Error("Failed to create command client", "err", err)
		os.Exit(1)
	}

	saved, err := store.Theme(ctx)
	if err != nil {
		log.Warn("Failed to load theme", "err", err)
	}
	current := theme.Get(saved)
	session := dispatcher.NewSession(ctx, store, os.Stdout, dispatcher.WithStyle(current.Render))

	var synth speech.Synthesizer
	if !*mute {
		synth = speech.NewExecSynthesizer(*ttsPath)
	}
	player := speech.NewPlayer(synth, log.Default())
	player.SetVolume(*volume)
	defer player.Stop()

	disp, err := dispatcher.New(client, session, player,
		dispatcher.WithTimeout(*timeout),
		dispatcher.WithIndicator(indicator(os.Stderr, func(s string) string { return current.Accent(s) })),
	)
	if err != nil {
		log.Error("Failed to create dispatcher", "err", err)
		os.Exit(1)
	}

	acts, err := actions.New(session, player, disp, store,
		actions.WithThemeHook(func(th theme.Theme) {
			current = th
			session.SetStyle(th.Render)
		}),
	)
	if err != nil {
		log.Error("Failed to create actions", "err", err)
		os.Exit(1)
	}
	defer acts.Close()

	if cli.CommandLine.Changed("theme") {
		if err := acts.SetTheme(ctx, *themeName); err != nil {
			log.Warn("Ignoring theme flag", "err", err)
		}
	}
	if n, err := acts.ArmReminders(ctx); err != nil {
		log.Warn("Failed to arm reminders", "err", err)
	} else {
		log.Debug("Armed reminders", "count", n)
	}

	r := &repl{
		disp:       disp,
		session:    session,
		acts:       acts,
		recognizer: speech.NewExecRecognizer(*sttPath),
		out:        os.Stdout,
		prompt:     func() string { return current.Accent("> ") },
	}

	acts.Greet()
	r.run(ctx, os.Stdin)
}

// setting prefers an explicit flag, then the environment, then the flag default.
func setting(flag, env, value string) string {
	if cli.CommandLine.Changed(flag) {
		return value
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return value
}

func indicator(w io.Writer, accent func(string) string) func(bool) {
	return func(loading bool) {
		if loading {
			fmt.Fprint(w, accent("Loading...")+"\r")
			return
		}
		fmt.Fprint(w, "\r\033[K")
	}
}

type listener interface {
	Listen(ctx context.Context) (string, error)
}

type repl struct {
	disp       *dispatcher.Dispatcher
	session    *dispatcher.Session
	acts       *actions.Actions
	recognizer listener
	out        io.Writer
	prompt     func() string
}

func (r *repl) run(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Fprint(r.out, r.prompt())
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !r.handle(ctx, line) {
				return
			}
		}
	}
}

// handle runs one input line and reports whether the loop should continue.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		r.submit(ctx, line)
		return true
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "quit", "exit":
		return false
	case "help":
		r.session.Show(helpText)
	case "voice":
		r.listen(ctx)
	case "date":
		r.acts.ShowDate()
	case "time":
		r.acts.CheckTime()
	case "joke":
		r.acts.TellJoke()
	case "timer":
		n, err := strconv.Atoi(arg)
		if err != nil {
			n = 0
		}
		if err := r.acts.StartTimer(n); err != nil {
			log.Debug("Timer not started", "arg", arg, "err", err)
		}
	case "calendar":
		r.acts.CheckCalendar()
	case "theme":
		if err := r.acts.SetTheme(ctx, arg); err != nil {
			r.session.Show(err.Error())
		}
	case "volume":
		n, err := strconv.Atoi(arg)
		if err != nil {
			r.session.Show("Usage: /volume 0-100")
			return true
		}
		r.acts.SetVolume(n)
	case "remind":
		at, msg, _ := strings.Cut(arg, " ")
		if err := r.acts.SaveReminder(ctx, msg, at); err != nil {
			log.Debug("Reminder not saved", "err", err)
		}
	case "reminders":
		if err := r.acts.ListReminders(ctx); err != nil {
			r.session.Show(err.Error())
		}
	case "sunny":
		r.acts.CheckWeather()
	case "weather":
		r.acts.WeatherCard(ctx)
	case "news":
		r.acts.NewsCard(ctx)
	case "quote":
		r.acts.QuoteCard(ctx)
	case "browser":
		r.acts.OpenBrowser()
	case "music":
		r.acts.PlayMusic()
	case "history":
		for i, e := range r.session.Entries() {
			fmt.Fprintf(r.out, "%3d  %s\n", i+1, e)
		}
	case "clear":
		if err := r.session.Clear(ctx); err != nil {
			r.session.Show(err.Error())
			return true
		}
		fmt.Fprint(r.out, "\033[H\033[2J")
	default:
		r.session.Show("Unknown command. Type /help for the list.")
	}
	return true
}

func (r *repl) submit(ctx context.Context, command string) {
	resp, ok := r.disp.Submit(ctx, command)
	if ok && resp.URL != "" {
		r.acts.OpenLink(resp.URL)
	}
}

func (r *repl) listen(ctx context.Context) {
	r.session.Show("Listening...")
	listenCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	command, err := r.recognizer.Listen(listenCtx)
	if err != nil {
		log.Warn("Speech recognition failed", "err", err)
		r.session.Show("Error: " + err.Error() + ". Please try again.")
		return
	}
	r.session.Show("> " + command)
	r.submit(ctx, command)
}
