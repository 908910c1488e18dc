package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"panda-assistant/internal/domain"
	"panda-assistant/internal/integrations/crypto"
	"panda-assistant/internal/integrations/news"
	"panda-assistant/internal/integrations/weather"
	"panda-assistant/internal/integrations/wikipedia"
)

type request struct {
	command   string
	sessionID string
}

type reply struct {
	text string
	url  string
}

type intent struct {
	name   string
	match  func(command string) bool
	handle func(s *CommandService, ctx context.Context, req request) (reply, error)
}

func anyPhrase(texts ...string) func(string) bool {
	ps := make([]phrase, 0, len(texts))
	for _, t := range texts {
		ps = append(ps, newPhrase(t))
	}
	return func(command string) bool {
		for _, p := range ps {
			if p.in(command) {
				return true
			}
		}
		return false
	}
}

// intents run in order; the first match wins.
var intents = []intent{
	{name: "weather", match: anyPhrase("weather"), handle: (*CommandService).weather},
	{name: "news", match: anyPhrase("news updates"), handle: (*CommandService).news},
	{name: "quote", match: anyPhrase("quote of the day"), handle: pickFrom(quotes)},
	{name: "joke", match: anyPhrase("joke"), handle: pickFrom(jokes)},
	{name: "fact", match: anyPhrase("fact"), handle: pickFrom(facts)},
	{name: "crypto", match: anyPhrase("bitcoin price", "ethereum price"), handle: (*CommandService).crypto},
	{name: "music", match: anyPhrase("play music"), handle: (*CommandService).playMusic},
	{name: "wikipedia", match: anyPhrase("search in wikipedia"), handle: (*CommandService).wikipedia},
	{name: "google", match: anyPhrase("search in google"), handle: webSearch("search in google", "Google", "https://www.google.com/search?q=")},
	{name: "youtube", match: anyPhrase("search in youtube"), handle: webSearch("search in youtube", "YouTube", "https://www.youtube.com/results?search_query=")},
	{name: "dice", match: anyPhrase("roll a dice"), handle: (*CommandService).rollDice},
	{name: "reminders", match: anyPhrase("my reminders"), handle: (*CommandService).listReminders},
	{name: "remind", match: anyPhrase("remind me to"), handle: (*CommandService).remind},
	{name: "timer", match: anyPhrase("set timer"), handle: (*CommandService).timer},
	{name: "time", match: anyPhrase("time"), handle: (*CommandService).clock},
	{name: "date", match: anyPhrase("date"), handle: (*CommandService).date},
	{name: "day", match: anyPhrase("day"), handle: (*CommandService).weekday},
	{name: "open", match: anyPhrase("open"), handle: (*CommandService).open},
	{name: "story", match: anyPhrase("tell me a story"), handle: pickFrom(stories)},
	{name: "stop", match: anyPhrase("stop"), handle: func(*CommandService, context.Context, request) (reply, error) {
		return reply{text: "Stopping current operations."}, nil
	}},
}

var (
	weatherCityRe = regexp.MustCompile(`weather(?:\s+(?:in|at)\b)?\s*(.+)`)
	reminderRe    = regexp.MustCompile(`remind me to (.+) in (\d+) (minutes?|hours?)`)
	timerRe       = regexp.MustCompile(`set timer for (\d+) (seconds?|minutes?|hours?)`)
)

// Words that can follow "weather" without naming a city.
var cityStopwords = map[string]bool{
	"info":        true,
	"information": true,
	"today":       true,
	"now":         true,
	"update":      true,
	"updates":     true,
	"report":      true,
}

func pickFrom(options []string) func(*CommandService, context.Context, request) (reply, error) {
	return func(s *CommandService, _ context.Context, _ request) (reply, error) {
		return reply{text: options[s.pick(len(options))]}, nil
	}
}

func webSearch(trigger, site, base string) func(*CommandService, context.Context, request) (reply, error) {
	p := newPhrase(trigger)
	return func(_ *CommandService, _ context.Context, req request) (reply, error) {
		term := p.strip(req.command)
		if term == "" {
			return reply{text: fmt.Sprintf("Please specify what to search on %s.", site)}, nil
		}
		return reply{
			text: fmt.Sprintf("Searching for '%s' on %s.", term, site),
			url:  base + url.QueryEscape(term),
		}, nil
	}
}

func extractCity(command string) string {
	m := weatherCityRe.FindStringSubmatch(command)
	if m == nil {
		return ""
	}
	city := strings.TrimSpace(m[1])
	if cityStopwords[city] {
		return ""
	}
	return city
}

func (s *CommandService) weather(ctx context.Context, req request) (reply, error) {
	city := extractCity(req.command)
	if city == "" {
		city = s.cfg.DefaultCity
	}
	cond, err := s.deps.Weather.Current(ctx, city)
	if err != nil {
		s.logger.Warn("weather lookup failed", "city", city, "err", err)
		if errors.Is(err, weather.ErrNoData) || isStatusError(err) {
			return reply{text: fmt.Sprintf("Couldn't retrieve weather information for %s.", city)}, nil
		}
		return reply{text: weatherErrorMsg}, nil
	}
	return reply{text: fmt.Sprintf("Weather in %s: %s°C, %s.",
		cond.City, strconv.FormatFloat(cond.TempC, 'f', -1, 64), capitalize(cond.Description))}, nil
}

func (s *CommandService) news(ctx context.Context, _ request) (reply, error) {
	headlines, err := s.deps.News.TopHeadlines(ctx, s.cfg.NewsCountry)
	if err != nil {
		s.logger.Warn("news lookup failed", "err", err)
		var apiErr *news.APIError
		if errors.As(err, &apiErr) {
			return reply{text: "Failed to retrieve news. Reason: " + apiErr.Message}, nil
		}
		return reply{text: newsErrorMsg}, nil
	}
	if len(headlines) == 0 {
		return reply{text: "No news articles found."}, nil
	}
	lines := make([]string, 0, len(headlines))
	for i, h := range headlines {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, h.Title, h.Source))
	}
	return reply{text: "Top news:\n" + strings.Join(lines, "\n")}, nil
}

func (s *CommandService) crypto(ctx context.Context, req request) (reply, error) {
	coin := "ethereum"
	if newPhrase("bitcoin").in(req.command) {
		coin = "bitcoin"
	}
	price, err := s.deps.Crypto.PriceUSD(ctx, coin)
	if err != nil {
		s.logger.Warn("crypto lookup failed", "coin", coin, "err", err)
		if errors.Is(err, crypto.ErrUnknownCoin) || isStatusError(err) {
			return reply{text: fmt.Sprintf("Couldn't retrieve the price for %s.", coin)}, nil
		}
		return reply{text: cryptoErrorMsg}, nil
	}
	return reply{text: fmt.Sprintf("The current price of %s is $%s.",
		capitalize(coin), strconv.FormatFloat(price, 'f', -1, 64))}, nil
}

func (s *CommandService) playMusic(_ context.Context, req request) (reply, error) {
	song := newPhrase("play music").strip(req.command)
	if song == "" {
		return reply{text: "Please specify a song name."}, nil
	}
	return reply{
		text: fmt.Sprintf("Playing '%s' on YouTube.", song),
		url:  "https://www.youtube.com/results?search_query=" + url.QueryEscape(song),
	}, nil
}

func (s *CommandService) wikipedia(ctx context.Context, req request) (reply, error) {
	term := newPhrase("search in wikipedia").strip(req.command)
	if term == "" {
		return reply{text: "Please specify what to search on Wikipedia."}, nil
	}
	sum, err := s.deps.Wikipedia.Summary(ctx, term)
	if errors.Is(err, wikipedia.ErrNotFound) {
		return reply{text: fmt.Sprintf("No Wikipedia article found for '%s'.", term)}, nil
	}
	if err != nil {
		s.logger.Warn("wikipedia lookup failed", "term", term, "err", err)
		return reply{text: GeneralErrorMsg}, nil
	}
	return reply{text: "Wikipedia Summary: " + truncateRunes(sum.Extract, wikiSummaryLimit) + "..."}, nil
}

func (s *CommandService) rollDice(context.Context, request) (reply, error) {
	return reply{text: fmt.Sprintf("You rolled a %d.", s.pick(6)+1)}, nil
}

func (s *CommandService) listReminders(ctx context.Context, req request) (reply, error) {
	rems, err := s.deps.Reminders.PendingReminders(ctx, req.sessionID)
	if err != nil {
		return reply{}, newError(ErrorInternal, "dynamodb_reminder_error", err)
	}
	if len(rems) == 0 {
		return reply{text: "You have no upcoming reminders."}, nil
	}
	lines := make([]string, 0, len(rems))
	for i, r := range rems {
		lines = append(lines, fmt.Sprintf("%d. %s at %s", i+1, r.Task, r.Due.In(s.cfg.Location).Format("Jan 2 15:04")))
	}
	return reply{text: "Your reminders:\n" + strings.Join(lines, "\n")}, nil
}

func (s *CommandService) remind(ctx context.Context, req request) (reply, error) {
	m := reminderRe.FindStringSubmatch(req.command)
	if m == nil {
		return reply{text: "I couldn't understand your reminder request."}, nil
	}
	task, unit := m[1], m[3]
	amount, err := strconv.Atoi(m[2])
	if err != nil {
		return reply{text: "I couldn't understand your reminder request."}, nil
	}
	due := s.now().Add(time.Duration(amount) * unitDuration(unit))
	if err := s.deps.Reminders.SaveReminder(ctx, domain.Reminder{SessionID: req.sessionID, Task: task, Due: due}); err != nil {
		return reply{}, newError(ErrorInternal, "dynamodb_reminder_error", err)
	}
	return reply{text: fmt.Sprintf("Reminder set: '%s' in %d %s.", task, amount, unit)}, nil
}

func (s *CommandService) timer(_ context.Context, req request) (reply, error) {
	m := timerRe.FindStringSubmatch(req.command)
	if m == nil {
		return reply{text: "Please specify the duration for the timer."}, nil
	}
	return reply{text: fmt.Sprintf("Setting a timer for %s %s.", m[1], m[2])}, nil
}

func (s *CommandService) clock(context.Context, request) (reply, error) {
	return reply{text: "The current time is " + s.now().In(s.cfg.Location).Format("15:04:05") + "."}, nil
}

func (s *CommandService) date(context.Context, request) (reply, error) {
	return reply{text: "Today's date is " + s.now().In(s.cfg.Location).Format("2006-01-02") + "."}, nil
}

func (s *CommandService) weekday(context.Context, request) (reply, error) {
	return reply{text: "Today is " + s.now().In(s.cfg.Location).Weekday().String() + "."}, nil
}

func (s *CommandService) open(_ context.Context, req request) (reply, error) {
	name := newPhrase("open").strip(req.command)
	target, ok := webApps[name]
	if !ok {
		return reply{text: fmt.Sprintf("I can't open '%s'. Please check the application name.", name)}, nil
	}
	return reply{text: fmt.Sprintf("Opening %s.", capitalize(name)), url: target}, nil
}

func unitDuration(unit string) time.Duration {
	switch {
	case strings.HasPrefix(unit, "hour"):
		return time.Hour
	case strings.HasPrefix(unit, "minute"):
		return time.Minute
	default:
		return time.Second
	}
}

func isStatusError(err error) bool {
	_, ok := upstreamStatusCode(err)
	return ok
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
