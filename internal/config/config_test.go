package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("K9_COMMANDS_CHANNEL_ID", "c1")
	t.Setenv("K9_CHAT_CHANNEL_ID", "c2")
	t.Setenv("K9_GUESS_CHANNEL_ID", "c3")
	t.Setenv("K9_CAPTURE_CHANNEL_ID", "c4")
	t.Setenv("K9_CHAT_ASSISTANT_ID", "asst_chat")
	t.Setenv("K9_CHAT_THREAD_ID", "thread_chat")
	t.Setenv("K9_GUESS_ASSISTANT_ID", "asst_guess")
}

func TestLoadWithDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.DBPath != "./data/k9.db" {
		t.Errorf("Expected the default database path, got %q", cfg.DBPath)
	}
	if cfg.ResetSchedule != "0 14 * * 1" {
		t.Errorf("Expected the default reset schedule, got %q", cfg.ResetSchedule)
	}
	if cfg.ResetTimezone != "America/Sao_Paulo" {
		t.Errorf("Expected the default reset timezone, got %q", cfg.ResetTimezone)
	}
	if cfg.GuessChannelID != "c3" {
		t.Errorf("Expected the guess channel id, got %q", cfg.GuessChannelID)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_PATH", "/tmp/other.db")
	t.Setenv("K9_RESET_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.DBPath != "/tmp/other.db" {
		t.Errorf("Expected the overridden database path, got %q", cfg.DBPath)
	}
	if cfg.ResetTimezone != "UTC" {
		t.Errorf("Expected the overridden timezone, got %q", cfg.ResetTimezone)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("K9_GUESS_ASSISTANT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected an error for a missing required variable")
	}
	if !strings.Contains(err.Error(), "K9_GUESS_ASSISTANT_ID") {
		t.Errorf("Expected the variable named, got %v", err)
	}
}
