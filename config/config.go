package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	LLMProvider    string // anthropic, openai, ollama
	AnthropicKey   string // API key (X-Api-Key header)
	AnthropicToken string // OAuth token (Authorization: Bearer header)
	OpenAIKey      string
	LLMModel       string
	OllamaBaseURL  string
	DiscordToken   string
	DatabasePath   string

	BotName     string
	Personality string
	Interests   string
	ReplyStyle  string

	ChatID       string // default chat scope for auto-generated schedules
	UserID       string // creator recorded on auto-generated goals
	DailyCron    string
	WeeklyCron   string
	MonthlyCron  string
	MaxRetries   int
	KeepGoalDays int // completed/cancelled goals older than this get swept
}

func Load() *Config {
	_ = godotenv.Load() // ignore error if no .env

	return &Config{
		LLMProvider:    envOr("LLM_PROVIDER", "anthropic"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicToken: os.Getenv("ANTHROPIC_AUTH_TOKEN"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		OllamaBaseURL:  envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		DiscordToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		DatabasePath:   envOr("DATABASE_PATH", "./plana.db"),
		BotName:        envOr("BOT_NAME", "Plana"),
		Personality:    envOr("PERSONA", "a cheerful college student who keeps a tidy daily routine"),
		Interests:      os.Getenv("PERSONA_INTERESTS"),
		ReplyStyle:     os.Getenv("PERSONA_REPLY_STYLE"),
		ChatID:         envOr("SCHEDULE_CHAT_ID", "default"),
		UserID:         envOr("SCHEDULE_USER_ID", "plana"),
		DailyCron:      envOr("DAILY_SCHEDULE_CRON", "30 0 * * *"),
		WeeklyCron:     envOr("WEEKLY_SCHEDULE_CRON", "0 1 * * 1"),
		MonthlyCron:    envOr("MONTHLY_SCHEDULE_CRON", "0 2 1 * *"),
		MaxRetries:     envInt("LLM_MAX_RETRIES", 3),
		KeepGoalDays:   envInt("KEEP_GOAL_DAYS", 7),
	}
}

func envOr(key, fallback string) string {
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
