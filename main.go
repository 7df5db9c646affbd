package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"gatherbot/completion"
	"gatherbot/telegram"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	store := NewStore(pool)

	var sessions Sessions
	if cfg.RedisURL != "" {
		redisSessions, err := NewRedisSessions(cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer redisSessions.Close()
		sessions = redisSessions
		logger.Info("session store", "backend", "redis")
	} else {
		sessions = NewMemorySessions()
		logger.Info("session store", "backend", "memory")
	}

	messenger := telegram.New(cfg.TelegramToken)
	completer := completion.New(completion.Config{
		BaseURL:    cfg.CompletionBaseURL,
		Deployment: cfg.CompletionDeployment,
		APIVersion: cfg.CompletionAPIVersion,
		APIKey:     cfg.CompletionAPIKey,
	})

	bot := NewBot(messenger, completer, NewSynthesizer(completer),
		store, store, sessions, logger, cfg.PollTimeout)

	logger.Info("bot starting", "poll_timeout", cfg.PollTimeout)
	if err := bot.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
	logger.Info("bot stopped")
}
