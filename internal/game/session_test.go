package game

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joaoseidel/k9/internal/assistant"
	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
	"github.com/joaoseidel/k9/internal/platform/platformtest"
)

type stubService struct {
	mu           sync.Mutex
	messages     []assistant.ThreadMessage
	instructions []string
	fragments    []string
}

func (s *stubService) AddMessage(_ context.Context, _ string, msg assistant.ThreadMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *stubService) CreateRun(_ context.Context, _, _, instructions string) (assistant.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions = append(s.instructions, instructions)
	return assistant.Run{ID: "run_1"}, nil
}

func (s *stubService) ListMessages(context.Context, string, string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragments, nil
}

func (s *stubService) sentContents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages {
		out = append(out, m.Content)
	}
	return out
}

type stubAwaiter struct {
	err      error
	toolCall *assistant.ToolCall
}

func (a *stubAwaiter) Await(_ context.Context, _, _ string, onToolCall assistant.ToolCallHandler) error {
	if a.toolCall != nil && onToolCall != nil {
		if _, err := onToolCall(*a.toolCall); err != nil {
			return err
		}
	}
	return a.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// dispatchUntil keeps re-dispatching the reaction until cond holds, covering
// the window before the session goroutine has subscribed.
func dispatchUntil(t *testing.T, router *bot.ReactionRouter, r platform.Reaction, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		router.Dispatch(r)
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func findReply(fake *platformtest.Fake, substr string) (platformtest.SentMessage, bool) {
	for _, m := range fake.Sent() {
		if strings.Contains(m.Content, substr) {
			return m, true
		}
	}
	return platformtest.SentMessage{}, false
}

func testSession() Session {
	return Session{
		ThreadID:    "thread_1",
		ChannelID:   "chan-1",
		QuestionID:  "q-1",
		UserID:      "u1",
		UserMention: "<@u1>",
	}
}

func TestSessionAnswerAdvancesToNextQuestion(t *testing.T) {
	fake := platformtest.NewFake()
	router := bot.NewReactionRouter()
	service := &stubService{fragments: []string{"Is it bigger than a car?"}}
	runner := NewRunner(context.Background(), fake, router, service, &stubAwaiter{}, "asst_1", quietLogger())

	runner.Start(testSession())

	question := func() (platformtest.SentMessage, bool) {
		return findReply(fake, "Is it bigger than a car?")
	}
	dispatchUntil(t, router, platform.Reaction{MessageID: "q-1", UserID: "u1", Emoji: EmojiYes},
		"the next question", func() bool { _, ok := question(); return ok })

	sent := service.sentContents()
	if len(sent) != 1 || sent[0] != "<@u1> answered: Yes" {
		t.Errorf("Expected the answer forwarded to the thread, got %v", sent)
	}

	next, _ := question()
	waitFor(t, "answer affordances on the next question", func() bool {
		return len(fake.ReactionsOn(next.MessageID)) == len(AnswerEmojis)
	})
}

func TestSessionIdleTimeoutFiresExactlyOnce(t *testing.T) {
	fake := platformtest.NewFake()
	fake.Reactions["q-1"] = append([]string{}, AnswerEmojis...)
	router := bot.NewReactionRouter()
	runner := NewRunner(context.Background(), fake, router, &stubService{}, &stubAwaiter{}, "asst_1", quietLogger())
	runner.SetIdleWindow(10 * time.Millisecond)

	runner.Start(testSession())

	waitFor(t, "the idle reply", func() bool {
		_, ok := findReply(fake, "took too long")
		return ok
	})
	if len(fake.ReactionsOn("q-1")) != 0 {
		t.Error("Expected the affordances cleared on idle")
	}

	// A late reaction must not revive the session.
	router.Dispatch(platform.Reaction{MessageID: "q-1", UserID: "u1", Emoji: EmojiYes})
	time.Sleep(30 * time.Millisecond)

	if got := len(fake.Sent()); got != 1 {
		t.Errorf("Expected exactly 1 outbound message, got %d", got)
	}
}

func TestSessionUnrecognizedEmojiKeepsSessionOpen(t *testing.T) {
	fake := platformtest.NewFake()
	router := bot.NewReactionRouter()
	service := &stubService{fragments: []string{"Fine, you win."}}
	runner := NewRunner(context.Background(), fake, router, service, &stubAwaiter{}, "asst_1", quietLogger())

	runner.Start(testSession())

	dispatchUntil(t, router, platform.Reaction{MessageID: "q-1", UserID: "u1", Emoji: "🔥"},
		"the wrong-emoji nudge", func() bool {
			_, ok := findReply(fake, "use the right emojis")
			return ok
		})

	// The session is still listening: a give-up afterwards still resolves.
	dispatchUntil(t, router, platform.Reaction{MessageID: "q-1", UserID: "u1", Emoji: EmojiGiveUp},
		"the farewell", func() bool {
			_, ok := findReply(fake, "Fine, you win.")
			return ok
		})

	farewell, _ := findReply(fake, "Fine, you win.")
	if len(fake.ReactionsOn(farewell.MessageID)) != 0 {
		t.Error("Expected no affordances on the farewell message")
	}

	sent := service.sentContents()
	if len(sent) != 1 || sent[0] != "<@u1> answered: I give up" {
		t.Errorf("Expected only the give-up forwarded, got %v", sent)
	}
}

func TestSessionIgnoresOtherUsers(t *testing.T) {
	fake := platformtest.NewFake()
	router := bot.NewReactionRouter()
	service := &stubService{fragments: []string{"Next question."}}
	runner := NewRunner(context.Background(), fake, router, service, &stubAwaiter{}, "asst_1", quietLogger())
	runner.SetIdleWindow(40 * time.Millisecond)

	runner.Start(testSession())

	for i := 0; i < 10; i++ {
		router.Dispatch(platform.Reaction{MessageID: "q-1", UserID: "intruder", Emoji: EmojiYes})
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, "the idle reply", func() bool {
		_, ok := findReply(fake, "took too long")
		return ok
	})
	if len(service.sentContents()) != 0 {
		t.Error("Expected no answers forwarded for a stranger's reactions")
	}
}

func TestSessionDetectedGameEndTerminates(t *testing.T) {
	fake := platformtest.NewFake()
	router := bot.NewReactionRouter()
	service := &stubService{fragments: []string{"It was a capybara. I win."}}
	awaiter := &stubAwaiter{toolCall: &assistant.ToolCall{
		ID:       "call_1",
		Type:     "function",
		Function: assistant.ToolCallFunction{Name: "detect_game_end"},
	}}
	runner := NewRunner(context.Background(), fake, router, service, awaiter, "asst_1", quietLogger())

	runner.Start(testSession())

	dispatchUntil(t, router, platform.Reaction{MessageID: "q-1", UserID: "u1", Emoji: EmojiYes},
		"the closing message", func() bool {
			_, ok := findReply(fake, "I win.")
			return ok
		})

	closing, _ := findReply(fake, "I win.")
	if len(fake.ReactionsOn(closing.MessageID)) != 0 {
		t.Error("Expected no affordances after a detected game end")
	}
}

func TestSessionRateLimitSurfaced(t *testing.T) {
	fake := platformtest.NewFake()
	router := bot.NewReactionRouter()
	runner := NewRunner(context.Background(), fake, router, &stubService{},
		&stubAwaiter{err: assistant.ErrRateLimited}, "asst_1", quietLogger())

	runner.Start(testSession())

	dispatchUntil(t, router, platform.Reaction{MessageID: "q-1", UserID: "u1", Emoji: EmojiYes},
		"the rate-limit reply", func() bool {
			_, ok := findReply(fake, assistant.RateLimitedReply)
			return ok
		})
}
