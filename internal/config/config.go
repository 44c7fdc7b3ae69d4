// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds all application configuration, read once at process start and
// passed explicitly to every component that needs a channel id or credential.
type Config struct {
	DiscordToken string
	OpenAIKey    string
	DBPath       string

	CommandsChannelID string
	ChatChannelID     string
	GuessChannelID    string
	CaptureChannelID  string

	ChatAssistantID  string
	ChatThreadID     string
	GuessAssistantID string

	// ResetSchedule is a cron expression; ResetTimezone an IANA zone name.
	ResetSchedule string
	ResetTimezone string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		DBPath:       getEnv("DB_PATH", "./data/k9.db"),

		CommandsChannelID: os.Getenv("K9_COMMANDS_CHANNEL_ID"),
		ChatChannelID:     os.Getenv("K9_CHAT_CHANNEL_ID"),
		GuessChannelID:    os.Getenv("K9_GUESS_CHANNEL_ID"),
		CaptureChannelID:  os.Getenv("K9_CAPTURE_CHANNEL_ID"),

		ChatAssistantID:  os.Getenv("K9_CHAT_ASSISTANT_ID"),
		ChatThreadID:     os.Getenv("K9_CHAT_THREAD_ID"),
		GuessAssistantID: os.Getenv("K9_GUESS_ASSISTANT_ID"),

		ResetSchedule: getEnv("K9_RESET_SCHEDULE", "0 14 * * 1"),
		ResetTimezone: getEnv("K9_RESET_TIMEZONE", "America/Sao_Paulo"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"DISCORD_TOKEN", c.DiscordToken},
		{"OPENAI_API_KEY", c.OpenAIKey},
		{"DB_PATH", c.DBPath},
		{"K9_COMMANDS_CHANNEL_ID", c.CommandsChannelID},
		{"K9_CHAT_CHANNEL_ID", c.ChatChannelID},
		{"K9_GUESS_CHANNEL_ID", c.GuessChannelID},
		{"K9_CAPTURE_CHANNEL_ID", c.CaptureChannelID},
		{"K9_CHAT_ASSISTANT_ID", c.ChatAssistantID},
		{"K9_CHAT_THREAD_ID", c.ChatThreadID},
		{"K9_GUESS_ASSISTANT_ID", c.GuessAssistantID},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s cannot be empty", field.name)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
