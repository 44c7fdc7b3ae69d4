package command

import (
	"errors"
	"testing"
	"time"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
)

func invocation(content string) *bot.Invocation {
	return &bot.Invocation{Message: &platform.Message{
		ID:            "in-1",
		ChannelID:     "chan-1",
		GuildID:       "guild-1",
		AuthorID:      "u1",
		AuthorName:    "joao",
		AuthorMention: "<@u1>",
		Content:       content,
	}}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		want    int
		wantErr bool
	}{
		{"no page", []string{"!rank"}, 0, false},
		{"first page", []string{"!rank", "1"}, 0, false},
		{"third page", []string{"!rank", "3"}, 2, false},
		{"not a number", []string{"!rank", "abc"}, 0, true},
		{"zero", []string{"!rank", "0"}, 0, true},
		{"negative", []string{"!rank", "-2"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePage(tt.tokens)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				var invalid *bot.InvalidArgumentsError
				if !errors.As(err, &invalid) {
					t.Errorf("Expected InvalidArgumentsError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected page %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{3*time.Hour + 7*time.Minute, "3h07"},
		{12 * time.Hour, "12h00"},
		{45 * time.Minute, "0h45"},
		{-time.Minute, "0h00"},
	}
	for _, tt := range tests {
		if got := formatRemaining(tt.d); got != tt.want {
			t.Errorf("formatRemaining(%v): expected %q, got %q", tt.d, tt.want, got)
		}
	}
}

func TestRankMarker(t *testing.T) {
	if got := rankMarker(1); got != ":first_place:" {
		t.Errorf("Expected a gold medal for rank 1, got %q", got)
	}
	if got := rankMarker(4); got != "4" {
		t.Errorf("Expected a plain number for rank 4, got %q", got)
	}
}
