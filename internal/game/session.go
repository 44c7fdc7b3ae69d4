// Package game hosts the long-lived reaction-driven loops: the guessing-game
// session state machine and the creature capture round. Both run outside the
// dispatcher, driven by reaction events and their own watchdog timers.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joaoseidel/k9/internal/assistant"
	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
)

// The four recognized answer reactions.
const (
	EmojiYes    = "\U0001F44D\U0001F3FC" // 👍🏼
	EmojiMaybe  = "\U0001F937\U0001F3FC" // 🤷🏼
	EmojiNo     = "\U0001F44E\U0001F3FC" // 👎🏼
	EmojiGiveUp = "❌"               // ❌
)

// AnswerEmojis is the affordance set attached to every open question.
var AnswerEmojis = []string{EmojiYes, EmojiMaybe, EmojiNo, EmojiGiveUp}

const (
	defaultIdleWindow  = 30 * time.Second
	defaultTurnTimeout = 60 * time.Second

	gameEndToolName   = "detect_game_end"
	gameEndToolOutput = `{"success": true, "instructions": "Say goodbye to the user, the game is over. And be sarcastic."}`

	genericGameReply = "Something just broke here. Try again."
)

// AssistantService is the slice of the assistant client the game needs.
type AssistantService interface {
	AddMessage(ctx context.Context, threadID string, msg assistant.ThreadMessage) error
	CreateRun(ctx context.Context, threadID, assistantID, instructions string) (assistant.Run, error)
	ListMessages(ctx context.Context, threadID, runID string) ([]string, error)
}

// RunAwaiter polls a run to a terminal state, executing tool calls.
type RunAwaiter interface {
	Await(ctx context.Context, threadID, runID string, onToolCall assistant.ToolCallHandler) error
}

// Session is one active guessing game: the external conversation handle, the
// currently open question and the addressed user.
type Session struct {
	ThreadID    string
	ChannelID   string
	QuestionID  string
	UserID      string
	UserMention string
}

// Runner owns every active guessing game. Each Start spawns one goroutine
// that loops over turns: await exactly one reaction from the addressed user
// within the idle window, forward the answer, post the follow-up question,
// repeat. The select over {reaction feed, watchdog timer} is the single
// arbitration point between the human-answer path and the idle watchdog;
// retiring the feed subscription makes the losing path a no-op.
type Runner struct {
	messenger   platform.Messenger
	reactions   *bot.ReactionRouter
	service     AssistantService
	awaiter     RunAwaiter
	assistantID string
	idleWindow  time.Duration
	turnTimeout time.Duration
	logger      *slog.Logger

	baseCtx context.Context
}

// NewRunner builds the session runner. ctx bounds the lifetime of every
// session it starts; cancelling it abandons open games without farewell.
func NewRunner(ctx context.Context, messenger platform.Messenger, reactions *bot.ReactionRouter, service AssistantService, awaiter RunAwaiter, assistantID string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		messenger:   messenger,
		reactions:   reactions,
		service:     service,
		awaiter:     awaiter,
		assistantID: assistantID,
		idleWindow:  defaultIdleWindow,
		turnTimeout: defaultTurnTimeout,
		logger:      logger,
		baseCtx:     ctx,
	}
}

// SetIdleWindow overrides the watchdog window, used in tests.
func (r *Runner) SetIdleWindow(d time.Duration) { r.idleWindow = d }

// Start begins the session loop for an already-posted opening question.
func (r *Runner) Start(s Session) {
	go r.run(r.baseCtx, s)
}

func (r *Runner) run(ctx context.Context, s Session) {
	logger := r.logger.With("thread_id", s.ThreadID, "user_id", s.UserID)
	logger.Info("guessing game started", "question_id", s.QuestionID)

	questionID := s.QuestionID
	feed, retire := r.reactions.Subscribe(questionID)
	defer func() { retire() }()

	timer := time.NewTimer(r.idleWindow)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			retire()
			r.terminateIdle(ctx, s, questionID)
			logger.Info("guessing game gave up waiting")
			return

		case reaction := <-feed:
			if reaction.UserID != s.UserID {
				continue
			}
			logger.Info("reaction received", "emoji", reaction.Emoji)

			answer, recognized := answerFor(reaction.Emoji)
			if !recognized {
				// One-shot nudge; the session stays open and the idle
				// window keeps running.
				reply := fmt.Sprintf("%s use the right emojis, come on.", s.UserMention)
				if _, err := r.messenger.Reply(ctx, s.ChannelID, questionID, reply); err != nil {
					logger.Error("failed to send invalid-emoji reply", "error", err)
				}
				continue
			}

			// The human answer won the race; retire this turn's listener
			// before resolving so the watchdog becomes a no-op.
			retire()
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}

			nextID, done := r.resolve(ctx, s, questionID, reaction.Emoji, answer, logger)
			if done {
				logger.Info("guessing game ended")
				return
			}

			questionID = nextID
			feed, retire = r.reactions.Subscribe(questionID)
			timer.Reset(r.idleWindow)
		}
	}
}

// resolve forwards one answer to the assistant and posts the follow-up
// question. It returns the next question's message id, or done=true when the
// session terminated (give-up, detected game end, or failure).
func (r *Runner) resolve(ctx context.Context, s Session, questionID, emoji, answer string, logger *slog.Logger) (string, bool) {
	turnCtx, cancel := context.WithTimeout(ctx, r.turnTimeout)
	defer cancel()

	_ = r.messenger.Typing(turnCtx, s.ChannelID)
	for _, e := range AnswerEmojis {
		if err := r.messenger.RemoveOwnReaction(turnCtx, s.ChannelID, questionID, e); err != nil {
			logger.Warn("failed to remove own reaction", "emoji", e, "error", err)
		}
	}

	err := r.service.AddMessage(turnCtx, s.ThreadID, assistant.ThreadMessage{
		Role:    "user",
		Content: fmt.Sprintf("%s answered: %s", s.UserMention, answer),
	})
	if err != nil {
		return r.fail(ctx, s, questionID, err, logger)
	}

	instructions := fmt.Sprintf(
		"Address the user as %s. If they give up, be sarcastic. But remember the game is over.",
		s.UserMention)
	run, err := r.service.CreateRun(turnCtx, s.ThreadID, r.assistantID, instructions)
	if err != nil {
		return r.fail(ctx, s, questionID, err, logger)
	}

	gameEnd := false
	err = r.awaiter.Await(turnCtx, s.ThreadID, run.ID, EndToolHandler(&gameEnd))
	if err != nil {
		return r.fail(ctx, s, questionID, err, logger)
	}

	fragments, err := r.service.ListMessages(turnCtx, s.ThreadID, run.ID)
	if err != nil {
		return r.fail(ctx, s, questionID, err, logger)
	}

	replyID, err := r.messenger.Reply(turnCtx, s.ChannelID, questionID, strings.Join(fragments, "\n"))
	if err != nil {
		return r.fail(ctx, s, questionID, err, logger)
	}

	if emoji == EmojiGiveUp || gameEnd {
		return "", true
	}

	for _, e := range AnswerEmojis {
		if err := r.messenger.AddReaction(turnCtx, s.ChannelID, replyID, e); err != nil {
			logger.Warn("failed to add reaction", "emoji", e, "error", err)
		}
	}
	return replyID, false
}

func (r *Runner) fail(ctx context.Context, s Session, questionID string, err error, logger *slog.Logger) (string, bool) {
	logger.Error("guessing game turn failed", "error", err)
	reply := genericGameReply
	if errors.Is(err, assistant.ErrRateLimited) {
		reply = assistant.RateLimitedReply
	}
	if _, rerr := r.messenger.Reply(ctx, s.ChannelID, questionID, reply); rerr != nil {
		logger.Error("failed to send turn-failure reply", "error", rerr)
	}
	return "", true
}

func (r *Runner) terminateIdle(ctx context.Context, s Session, questionID string) {
	if err := r.messenger.RemoveAllReactions(ctx, s.ChannelID, questionID); err != nil {
		r.logger.Warn("failed to clear reactions on idle", "error", err)
	}
	reply := fmt.Sprintf("%s you took too long to answer, so I gave up.", s.UserMention)
	if _, err := r.messenger.Reply(ctx, s.ChannelID, questionID, reply); err != nil {
		r.logger.Error("failed to send idle reply", "error", err)
	}
}

// EndToolHandler answers the assistant's detect_game_end tool call, setting
// *ended when the assistant declares the game over.
func EndToolHandler(ended *bool) assistant.ToolCallHandler {
	return func(call assistant.ToolCall) (assistant.ToolOutput, error) {
		if call.Function.Name != gameEndToolName {
			return assistant.ToolOutput{}, fmt.Errorf("unsupported tool call: %s", call.Function.Name)
		}
		*ended = true
		return assistant.ToolOutput{ToolCallID: call.ID, Output: gameEndToolOutput}, nil
	}
}

func answerFor(emoji string) (string, bool) {
	switch emoji {
	case EmojiYes:
		return "Yes", true
	case EmojiMaybe:
		return "I don't know, maybe", true
	case EmojiNo:
		return "No", true
	case EmojiGiveUp:
		return "I give up", true
	default:
		return "", false
	}
}
