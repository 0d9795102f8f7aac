package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/laxmihoney/honeychat/internal/chat"
	"github.com/laxmihoney/honeychat/internal/config"
	"github.com/laxmihoney/honeychat/internal/history"
	"github.com/laxmihoney/honeychat/internal/httpapi"
	"github.com/laxmihoney/honeychat/internal/identity"
	"github.com/laxmihoney/honeychat/internal/llm"
	"github.com/laxmihoney/honeychat/internal/observability"
	"github.com/laxmihoney/honeychat/internal/users"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release external resources
	// (Redis, Postgres).
	Cleanup func() error
}

// Build constructs the full dependency graph explicitly. Nothing here lives
// in package-level state; every handle is owned by the result.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := history.New(ctx, history.RedisConfig{
		Addr:      cfg.RedisAddr,
		Username:  cfg.RedisUsername,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		OpTimeout: cfg.StoreOpTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, chat history is in-memory and lost on restart")
	}

	var completer chat.Completer
	if cfg.GroqAPIKey == "" {
		logger.Warn("GROQ_API_KEY not set, using mock completion client")
		completer = &llm.Mock{}
	} else {
		completer = llm.NewGroqClient(llm.GroqConfig{
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     cfg.GroqBaseURL,
			Model:       cfg.GroqModel,
			Temperature: &cfg.GroqTemperature,
			MaxTokens:   cfg.GroqMaxTokens,
			Timeout:     cfg.CompletionTimeout,
		}, logger)
	}

	userStore, err := users.New(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("user store init failed: %w", err)
	}

	verifier := identity.NewStaticVerifier(identity.ParseStaticTokens(cfg.AuthStaticTokens))

	chatSvc := chat.NewService(chat.ServiceConfig{
		Store:         store,
		Completer:     completer,
		Logger:        logger,
		Metrics:       metrics,
		HistoryWindow: cfg.HistoryWindow,
	})

	// Only externally backed stores join the readiness set; the in-memory
	// fallbacks have nothing to probe.
	pingers := make(map[string]httpapi.Pinger)
	if p, ok := store.(httpapi.Pinger); ok {
		pingers["history"] = p
	}
	if p, ok := userStore.(httpapi.Pinger); ok {
		pingers["users"] = p
	}

	api := httpapi.New(cfg, chatSvc, userStore, verifier, metrics, pingers, logger)

	cleanup := func() error {
		var errs []string
		if err := userStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
