package command

import (
	"context"
	"strings"

	"github.com/joaoseidel/k9/internal/assistant"
	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/game"
	"github.com/joaoseidel/k9/internal/platform"
)

// GuessService is the assistant surface the guess starter needs on top of
// what the running game consumes.
type GuessService interface {
	game.AssistantService
	CreateThread(ctx context.Context) (string, error)
}

// Guess opens a fresh guessing game: a new assistant thread, the opening
// question, the answer affordances, then hands the loop to the session
// runner.
type Guess struct {
	messenger   platform.Messenger
	service     GuessService
	awaiter     game.RunAwaiter
	sessions    *game.Runner
	assistantID string
}

// NewGuess builds the guess command.
func NewGuess(messenger platform.Messenger, service GuessService, awaiter game.RunAwaiter, sessions *game.Runner, assistantID string) *Guess {
	return &Guess{
		messenger:   messenger,
		service:     service,
		awaiter:     awaiter,
		sessions:    sessions,
		assistantID: assistantID,
	}
}

func (c *Guess) Name() string        { return "Guess" }
func (c *Guess) Description() string { return "Starts a guessing game. Think of something and I'll figure it out" }
func (c *Guess) Help() string        { return "**Use**: !guess" }

func (c *Guess) Matches(input string) bool {
	return strings.HasPrefix(input, "!guess")
}

func (c *Guess) Parse(tokens []string) (any, error) {
	if len(tokens) > 1 {
		return nil, bot.InvalidArgs("%s", c.Help())
	}
	return nil, nil
}

func (c *Guess) Execute(ctx context.Context, inv *bot.Invocation, _ any) error {
	msg := inv.Message

	threadID, err := c.service.CreateThread(ctx)
	if err != nil {
		return err
	}

	err = c.service.AddMessage(ctx, threadID, assistant.ThreadMessage{
		Role:    "user",
		Content: msg.AuthorMention + " wants to play. Start the game.",
	})
	if err != nil {
		return err
	}

	run, err := c.service.CreateRun(ctx, threadID, c.assistantID,
		"Start a new game. Address the user as "+msg.AuthorMention+".")
	if err != nil {
		return err
	}

	ended := false
	if err := c.awaiter.Await(ctx, threadID, run.ID, game.EndToolHandler(&ended)); err != nil {
		return err
	}

	fragments, err := c.service.ListMessages(ctx, threadID, run.ID)
	if err != nil {
		return err
	}

	questionID, err := c.messenger.Reply(ctx, msg.ChannelID, msg.ID, strings.Join(fragments, "\n"))
	if err != nil {
		return err
	}
	if ended {
		return nil
	}

	for _, emoji := range game.AnswerEmojis {
		if err := c.messenger.AddReaction(ctx, msg.ChannelID, questionID, emoji); err != nil {
			return err
		}
	}

	c.sessions.Start(game.Session{
		ThreadID:    threadID,
		ChannelID:   msg.ChannelID,
		QuestionID:  questionID,
		UserID:      msg.AuthorID,
		UserMention: msg.AuthorMention,
	})
	return nil
}
