package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
)

const helpPageSize = 10

// HelpArgs are the parsed arguments of the help command.
type HelpArgs struct {
	Page int // zero-based
}

// Help lists every available command with its usage, paged.
type Help struct {
	messenger platform.Messenger
	commands  []bot.Command
}

// NewHelp builds the help command over the given command list. Help lists
// itself as well.
func NewHelp(messenger platform.Messenger, commands []bot.Command) *Help {
	return &Help{messenger: messenger, commands: commands}
}

func (c *Help) Name() string        { return "Commands" }
func (c *Help) Description() string { return "Shows every available command" }
func (c *Help) Help() string        { return "**Use**: !commands [page]" }

func (c *Help) Matches(input string) bool {
	return strings.HasPrefix(input, "!help") || strings.HasPrefix(input, "!commands")
}

func (c *Help) Parse(tokens []string) (any, error) {
	page, err := parsePage(tokens)
	if err != nil {
		return nil, err
	}
	return HelpArgs{Page: page}, nil
}

func (c *Help) Execute(ctx context.Context, inv *bot.Invocation, args any) error {
	a := args.(HelpArgs)

	all := append(append([]bot.Command{}, c.commands...), c)
	totalPages := (len(all) + helpPageSize - 1) / helpPageSize

	start := a.Page * helpPageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + helpPageSize
	if end > len(all) {
		end = len(all)
	}

	var b strings.Builder
	b.WriteString("**Available K9 commands**:\n")
	for _, cmd := range all[start:end] {
		fmt.Fprintf(&b, "    %s: %s\n", cmd.Name(), strings.ToLower(cmd.Description()))
		indented := strings.ReplaceAll(cmd.Help(), "\n", "\n         ")
		fmt.Fprintf(&b, "         %s\n", indented)
	}
	fmt.Fprintf(&b, "**Page [%d of %d]**", a.Page+1, totalPages)

	_, err := c.messenger.ReplyNoPreview(ctx, inv.Message.ChannelID, inv.Message.ID, b.String())
	return err
}
