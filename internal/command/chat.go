package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/joaoseidel/k9/internal/assistant"
	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
)

// BusyChatReply is the chat lane's busy rejection.
const BusyChatReply = "I'm already answering someone else. Learn to wait your turn."

var commandPrefixPattern = regexp.MustCompile(`^(!|\$|m!)`)

// Chat is the free-chat lane's catch-all: every message in the chat channel
// goes to the conversational assistant on one shared thread. Guard failures
// (links, mass mentions, commands) surface as validation errors so the
// dispatcher replies with them verbatim.
type Chat struct {
	messenger         platform.Messenger
	client            *assistant.Client
	poller            *assistant.Poller
	assistantID       string
	threadID          string
	commandsChannelID string
}

// NewChat builds the chat responder on the shared conversation thread.
func NewChat(messenger platform.Messenger, client *assistant.Client, poller *assistant.Poller, assistantID, threadID, commandsChannelID string) *Chat {
	return &Chat{
		messenger:         messenger,
		client:            client,
		poller:            poller,
		assistantID:       assistantID,
		threadID:          threadID,
		commandsChannelID: commandsChannelID,
	}
}

func (c *Chat) Name() string        { return "Chat" }
func (c *Chat) Description() string { return "Chats with K9" }
func (c *Chat) Help() string        { return "Just talk in the chat channel" }

// Matches accepts everything; the chat lane has no other commands.
func (c *Chat) Matches(string) bool { return true }

func (c *Chat) Parse(tokens []string) (any, error) {
	content := strings.ToLower(strings.Join(tokens, " "))
	switch {
	case strings.Contains(content, "http"):
		return nil, bot.InvalidArgs("Don't send links, please. Because of that I won't answer.")
	case strings.Contains(content, "@everyone") || strings.Contains(content, "@here"):
		return nil, bot.InvalidArgs("Don't mention everyone, please. Because of that I won't answer.")
	case commandPrefixPattern.MatchString(content):
		return nil, bot.InvalidArgs(
			"Don't send commands here, please. Use %s for my commands.",
			platform.MentionChannel(c.commandsChannelID))
	}
	return nil, nil
}

func (c *Chat) Execute(ctx context.Context, inv *bot.Invocation, _ any) error {
	msg := inv.Message

	err := c.client.AddMessage(ctx, c.threadID, assistant.ThreadMessage{
		Role:    "user",
		Content: fmt.Sprintf("%s or %s said: %s", msg.AuthorName, msg.AuthorMention, msg.Content),
		Metadata: map[string]string{
			"username": msg.AuthorName,
			"mention":  msg.AuthorMention,
		},
	})
	if err != nil {
		return err
	}

	instructions := fmt.Sprintf("The user speaking now is named %s.\nAddress them as %s.",
		msg.AuthorName, msg.AuthorMention)
	run, err := c.client.CreateRun(ctx, c.threadID, c.assistantID, instructions)
	if err != nil {
		return err
	}

	if err := c.poller.Await(ctx, c.threadID, run.ID, nil); err != nil {
		return err
	}

	fragments, err := c.client.ListMessages(ctx, c.threadID, run.ID)
	if err != nil {
		return err
	}

	_, err = c.messenger.Send(ctx, msg.ChannelID, strings.Join(fragments, "\n"))
	return err
}
