package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"panda-assistant/handler"
	"panda-assistant/internal/integrations/crypto"
	"panda-assistant/internal/integrations/news"
	"panda-assistant/internal/integrations/openai"
	"panda-assistant/internal/integrations/paramstore"
	"panda-assistant/internal/integrations/weather"
	"panda-assistant/internal/integrations/wikipedia"
	"panda-assistant/internal/repository"
	"panda-assistant/internal/usecase"
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	defaultCity := envString("DEFAULT_CITY", "Mumbai")
	newsCountry := envString("NEWS_COUNTRY", "in")
	timezone := envString("ASSISTANT_TIMEZONE", "UTC")
	maxContextItems := envInt("MAX_CONTEXT_ITEMS", 10)
	maxCommandLen := envInt("MAX_COMMAND_LENGTH", 300)
	openaiModel := os.Getenv("OPENAI_MODEL")
	localAddr := os.Getenv("LOCAL_ADDR")

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Error("invalid time zone", "timezone", timezone, "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg), paramPrefix)
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}

	weatherClient, err := weather.NewClient(ssmClient.Secret("weather-api-key"))
	if err != nil {
		slog.Error("failed to create weather client", "err", err)
		os.Exit(1)
	}
	newsClient, err := news.NewClient(ssmClient.Secret("news-api-key"))
	if err != nil {
		slog.Error("failed to create news client", "err", err)
		os.Exit(1)
	}

	deps := usecase.Dependencies{
		Log:       stateClient,
		Reminders: stateClient,
		Weather:   weatherClient,
		News:      newsClient,
		Crypto:    crypto.NewClient(),
		Wikipedia: wikipedia.NewClient(),
	}
	if openaiModel != "" {
		openaiClient, err := openai.NewClient(ssmClient.Secret("open-ai-token"))
		if err != nil {
			slog.Error("failed to create OpenAI client", "err", err)
			os.Exit(1)
		}
		deps.LLM = openaiClient
	}

	// ---- Handler ----
	commandService, err := usecase.NewCommandService(deps, usecase.Config{
		DefaultCity:     defaultCity,
		NewsCountry:     newsCountry,
		Location:        loc,
		MaxContextItems: maxContextItems,
		MaxCommandLen:   maxCommandLen,
		OpenAIModel:     openaiModel,
	})
	if err != nil {
		slog.Error("failed to create command service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(commandService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if localAddr == "" {
		lambda.Start(h.Handle)
		return
	}
	if err := serveLocal(localAddr, h); err != nil {
		slog.Error("local server failed", "err", err)
		os.Exit(1)
	}
}

func serveLocal(addr string, h *handler.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewMux(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving locally", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
