package command

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joaoseidel/k9/internal/assistant"
	"github.com/joaoseidel/k9/internal/platform/platformtest"
)

func TestChatParseGuards(t *testing.T) {
	c := NewChat(platformtest.NewFake(), nil, nil, "asst", "thread", "cmd-chan")

	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{"link", []string{"check", "https://example.com"}, "Don't send links"},
		{"everyone", []string{"hey", "@everyone"}, "Don't mention everyone"},
		{"here", []string{"hey", "@here"}, "Don't mention everyone"},
		{"bang command", []string{"!size"}, "Don't send commands here"},
		{"dollar command", []string{"$mute"}, "Don't send commands here"},
		{"mee6 command", []string{"m!rank"}, "Don't send commands here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Parse(tt.tokens)
			if err == nil {
				t.Fatal("Expected a guard error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, err.Error())
			}
		})
	}

	if _, err := c.Parse([]string{"hello", "there"}); err != nil {
		t.Errorf("Expected plain chatter accepted, got %v", err)
	}
}

func TestChatCommandGuardNamesTheCommandsChannel(t *testing.T) {
	c := NewChat(platformtest.NewFake(), nil, nil, "asst", "thread", "cmd-chan")
	_, err := c.Parse([]string{"!d20"})
	if err == nil || !strings.Contains(err.Error(), "<#cmd-chan>") {
		t.Errorf("Expected the commands channel mentioned, got %v", err)
	}
}

func TestChatExecuteRoundTrip(t *testing.T) {
	var addedMessage assistant.ThreadMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/messages"):
			_ = json.NewDecoder(r.Body).Decode(&addedMessage)
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/runs"):
			_, _ = w.Write([]byte(`{"id": "run_1"}`))
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/runs/"):
			_, _ = w.Write([]byte(`{"status": "completed"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/messages"):
			_, _ = w.Write([]byte(`{"data": [{"content": [{"text": {"value": "Oh, it's you again."}}]}]}`))
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	fake := platformtest.NewFake()
	client := assistant.NewClientWithBaseURL("sk-test", srv.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	poller := assistant.NewPollerWithInterval(client, logger, time.Millisecond)
	c := NewChat(fake, client, poller, "asst_1", "thread_1", "cmd-chan")

	inv := invocation("good morning dog")
	if err := c.Execute(context.Background(), inv, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if addedMessage.Content != "joao or <@u1> said: good morning dog" {
		t.Errorf("Unexpected thread message: %q", addedMessage.Content)
	}
	if addedMessage.Metadata["username"] != "joao" {
		t.Errorf("Expected the username in metadata, got %v", addedMessage.Metadata)
	}
	if got := fake.LastContent(); got != "Oh, it's you again." {
		t.Errorf("Expected the assistant reply relayed, got %q", got)
	}
}
