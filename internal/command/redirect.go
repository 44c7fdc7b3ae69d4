package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
)

// Redirect answers a command typed in the wrong channel with a pointer to
// its dedicated one. Used in the general commands lane for the guessing game
// and creature capture.
type Redirect struct {
	messenger platform.Messenger
	name      string
	desc      string
	prefix    string
	channelID string
	activity  string
}

// NewRedirect builds a redirect stub for one command prefix.
func NewRedirect(messenger platform.Messenger, name, desc, prefix, channelID, activity string) *Redirect {
	return &Redirect{
		messenger: messenger,
		name:      name,
		desc:      desc,
		prefix:    prefix,
		channelID: channelID,
		activity:  activity,
	}
}

func (c *Redirect) Name() string        { return c.name }
func (c *Redirect) Description() string { return c.desc }
func (c *Redirect) Help() string        { return "**Use**: " + c.prefix }

func (c *Redirect) Matches(input string) bool {
	return strings.HasPrefix(input, c.prefix)
}

func (c *Redirect) Parse([]string) (any, error) {
	return nil, nil
}

func (c *Redirect) Execute(ctx context.Context, inv *bot.Invocation, _ any) error {
	content := fmt.Sprintf("To %s, use the %s channel.", c.activity, platform.MentionChannel(c.channelID))
	_, err := c.messenger.Send(ctx, inv.Message.ChannelID, content)
	return err
}
