package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"panda-assistant/internal/domain"
	"panda-assistant/internal/integrations/news"
	"panda-assistant/internal/integrations/weather"
	"panda-assistant/internal/integrations/wikipedia"
)

const (
	defaultMaxContext    = 10
	defaultMaxCommandLen = 300
	defaultCity          = "Mumbai"
	defaultNewsCountry   = "in"
)

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

type CommandLog interface {
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.CommandRecord, error)
	RecordCommand(ctx context.Context, sessionID, command, response, intent string) error
}

type ReminderStore interface {
	SaveReminder(ctx context.Context, r domain.Reminder) error
	PendingReminders(ctx context.Context, sessionID string) ([]domain.Reminder, error)
}

type WeatherClient interface {
	Current(ctx context.Context, city string) (weather.Conditions, error)
}

type NewsClient interface {
	TopHeadlines(ctx context.Context, country string) ([]news.Headline, error)
}

type CryptoClient interface {
	PriceUSD(ctx context.Context, coin string) (float64, error)
}

type WikipediaClient interface {
	Summary(ctx context.Context, term string) (wikipedia.Summary, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Dependencies are the collaborators of CommandService. LLM may be nil when
// Config.OpenAIModel is empty.
type Dependencies struct {
	Log       CommandLog
	Reminders ReminderStore
	Weather   WeatherClient
	News      NewsClient
	Crypto    CryptoClient
	Wikipedia WikipediaClient
	LLM       LLMClient
}

type Config struct {
	DefaultCity     string
	NewsCountry     string
	Location        *time.Location
	MaxContextItems int
	MaxCommandLen   int
	// OpenAIModel enables the LLM fallback for commands no intent matches.
	OpenAIModel string
	Logger      *slog.Logger
}

type CommandService struct {
	deps   Dependencies
	cfg    Config
	logger *slog.Logger
	pick   func(n int) int
	now    func() time.Time
}

type CommandInput struct {
	Command   string
	SessionID string
}

type CommandOutput struct {
	Response  string
	URL       string
	SessionID string
	Intent    string
}

func NewCommandService(deps Dependencies, cfg Config) (*CommandService, error) {
	if deps.Log == nil {
		return nil, errors.New("usecase: command log must not be nil")
	}
	if deps.Reminders == nil {
		return nil, errors.New("usecase: reminder store must not be nil")
	}
	if deps.Weather == nil || deps.News == nil || deps.Crypto == nil || deps.Wikipedia == nil {
		return nil, errors.New("usecase: integration clients must not be nil")
	}
	cfg.OpenAIModel = strings.TrimSpace(cfg.OpenAIModel)
	if cfg.OpenAIModel != "" && deps.LLM == nil {
		return nil, errors.New("usecase: llm client must not be nil when a model is configured")
	}
	if strings.TrimSpace(cfg.DefaultCity) == "" {
		cfg.DefaultCity = defaultCity
	}
	if strings.TrimSpace(cfg.NewsCountry) == "" {
		cfg.NewsCountry = defaultNewsCountry
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxContextItems <= 0 {
		cfg.MaxContextItems = defaultMaxContext
	}
	if cfg.MaxCommandLen <= 0 {
		cfg.MaxCommandLen = defaultMaxCommandLen
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandService{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		pick:   rand.Intn,
		now:    time.Now,
	}, nil
}

// Interpret answers one command and records the exchange in the session log.
func (s *CommandService) Interpret(ctx context.Context, in CommandInput) (CommandOutput, error) {
	command := strings.TrimSpace(in.Command)
	if command == "" {
		return CommandOutput{}, newError(ErrorInvalidInput, "empty_command", nil)
	}
	if len(command) > s.cfg.MaxCommandLen {
		return CommandOutput{}, newError(ErrorInvalidInput, "command_too_long", nil)
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = newUUID()
	}

	req := request{command: normalize(command), sessionID: sessionID}
	name, rep, err := s.dispatch(ctx, req)
	if err != nil {
		return CommandOutput{}, err
	}
	if err := ctx.Err(); err != nil {
		return CommandOutput{}, newError(ErrorUpstream, "request_cancelled", err)
	}

	if err := s.deps.Log.RecordCommand(ctx, sessionID, command, rep.text, name); err != nil {
		return CommandOutput{}, newError(ErrorInternal, "dynamodb_write_error", err)
	}

	return CommandOutput{
		Response:  rep.text,
		URL:       rep.url,
		SessionID: sessionID,
		Intent:    name,
	}, nil
}

func (s *CommandService) dispatch(ctx context.Context, req request) (string, reply, error) {
	for _, c := range cannedReplies {
		if c.phrase.in(req.command) {
			return "smalltalk", reply{text: c.replies[s.pick(len(c.replies))]}, nil
		}
	}
	for _, it := range intents {
		if !it.match(req.command) {
			continue
		}
		rep, err := it.handle(s, ctx, req)
		if err != nil {
			var ucErr *Error
			if errors.As(err, &ucErr) {
				return "", reply{}, err
			}
			s.logger.Error("intent failed", "intent", it.name, "err", err)
			return it.name, reply{text: GeneralErrorMsg}, nil
		}
		return it.name, rep, nil
	}
	rep, err := s.fallback(ctx, req)
	return "fallback", rep, err
}

// normalize drops question marks and lower-cases the command for matching.
func normalize(command string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(command, "?", "")))
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
