package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
	"github.com/joaoseidel/k9/internal/store"
)

// defaultRoleColor is applied when the user never chose a color.
const defaultRoleColor = 0xEEEEEE

// RoleArgs are the parsed arguments of the role command.
type RoleArgs struct {
	RoleName string
	Color    int
	HasColor bool
}

// RoleCustom lets a member create and restyle their own personal role.
type RoleCustom struct {
	messenger platform.Messenger
	repo      store.Repository
}

// NewRoleCustom builds the role command.
func NewRoleCustom(messenger platform.Messenger, repo store.Repository) *RoleCustom {
	return &RoleCustom{messenger: messenger, repo: repo}
}

func (c *RoleCustom) Name() string        { return "Role" }
func (c *RoleCustom) Description() string { return "Manages your own role on the server" }

func (c *RoleCustom) Help() string {
	var b strings.Builder
	b.WriteString("**Use**: !role <name> [#color in hex]\n")
	b.WriteString("**Tip**: Use [ColorHex](https://www.color-hex.com) to pick the hex color\n")
	b.WriteString("*The color is optional; without one the current color is kept, or the default used.*")
	return b.String()
}

func (c *RoleCustom) Matches(input string) bool {
	return strings.HasPrefix(input, "!role")
}

func (c *RoleCustom) Parse(tokens []string) (any, error) {
	if len(tokens) < 2 {
		return nil, bot.InvalidArgs("%s", c.Help())
	}

	last := tokens[len(tokens)-1]
	if strings.HasPrefix(last, "#") {
		args := RoleArgs{RoleName: strings.Join(tokens[1:len(tokens)-1], " ")}
		if color, err := strconv.ParseInt(strings.TrimPrefix(last, "#"), 16, 32); err == nil {
			args.Color = int(color)
			args.HasColor = true
		}
		// A broken hex token silently falls back to the stored color.
		if args.RoleName == "" {
			return nil, bot.InvalidArgs("%s", c.Help())
		}
		return args, nil
	}

	return RoleArgs{RoleName: strings.Join(tokens[1:], " ")}, nil
}

func (c *RoleCustom) Execute(ctx context.Context, inv *bot.Invocation, args any) error {
	a := args.(RoleArgs)
	msg := inv.Message

	user, err := c.repo.Observe(ctx, msg.AuthorID, msg.AuthorName)
	if err != nil {
		return err
	}

	roleID := ""
	color := defaultRoleColor
	if user.PersonalRole != nil {
		roleID = user.PersonalRole.ID
		color = user.PersonalRole.Color
	}
	if a.HasColor {
		color = a.Color
	}

	hadRole := user.PersonalRole != nil
	role, err := ensureRole(ctx, c.messenger, msg.GuildID, msg.AuthorID, roleID, a.RoleName, color, true)
	if err != nil {
		return err
	}
	user.PersonalRole = &role
	if err := c.repo.Upsert(ctx, user); err != nil {
		return err
	}

	if err := c.messenger.MoveRoleToTop(ctx, msg.GuildID, role.ID); err != nil {
		return err
	}

	verb := "created"
	if hadRole {
		verb = "updated"
	}
	content := fmt.Sprintf("Hey %s, your role `%s` was %s successfully!", msg.AuthorMention, role.Name, verb)
	_, err = c.messenger.Send(ctx, msg.ChannelID, content)
	return err
}
