package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds every secret and knob the bot needs, loaded from environment
// variables (a .env file is honored in development).
type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	DatabaseURL   string `env:"DATABASE_URL,required"`

	CompletionBaseURL    string `env:"COMPLETION_BASE_URL,required"`
	CompletionDeployment string `env:"COMPLETION_DEPLOYMENT,required"`
	CompletionAPIVersion string `env:"COMPLETION_API_VERSION,required"`
	CompletionAPIKey     string `env:"COMPLETION_API_KEY,required"`

	// Optional Redis URL; when empty, session state stays in process memory.
	RedisURL string `env:"REDIS_URL"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PollTimeout int    `env:"POLL_TIMEOUT" envDefault:"30"`
}

// LoadConfig parses the environment. A missing required variable is a startup
// failure; nothing here is recoverable at runtime.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
