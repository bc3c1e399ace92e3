package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	ProfilePath     string
	VODLibraryDir   string
	AnthropicAPIKey string
	TitleModel      string
	SlackBotToken   string
	SlackChannel    string
	APIToken        string
}

func Load() Config {
	return Config{
		Port:            envInt("ANDERSON_PORT", 8760),
		NatsURL:         envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		ProfilePath:     envStr("ANDERSON_PROFILE", ""),
		VODLibraryDir:   envStr("VOD_LIBRARY_DIR", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		TitleModel:      envStr("ANDERSON_TITLE_MODEL", "claude-sonnet-4-20250514"),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_REVIEW_CHANNEL", ""),
		APIToken:        envStr("ANDERSON_API_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
