package command

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/domain"
	"github.com/joaoseidel/k9/internal/platform"
	"github.com/joaoseidel/k9/internal/store"
)

const (
	// sizeResetInterval is how long a rolled size sticks before it may be
	// rolled again.
	sizeResetInterval = 12 * time.Hour

	sizeMin = -10
	sizeMax = 24
)

var mentionPattern = regexp.MustCompile(`^<@\d+>$`)

// SizeArgs are the parsed arguments of the size command.
type SizeArgs struct {
	// TargetID is the mentioned user's platform id, "" for a self roll.
	TargetID string
}

// Size rolls the caller's attribute size, or peeks at another member's.
type Size struct {
	messenger platform.Messenger
	repo      store.Repository

	now  func() time.Time
	roll func() int
}

// NewSize builds the size command.
func NewSize(messenger platform.Messenger, repo store.Repository) *Size {
	return &Size{
		messenger: messenger,
		repo:      repo,
		now:       time.Now,
		roll:      func() int { return sizeMin + rand.IntN(sizeMax-sizeMin+1) },
	}
}

func (c *Size) Name() string        { return "Size" }
func (c *Size) Description() string { return "Measures your size" }
func (c *Size) Help() string        { return "**Use**: !size [@user]" }

func (c *Size) Matches(input string) bool {
	return strings.HasPrefix(input, "!size")
}

func (c *Size) Parse(tokens []string) (any, error) {
	if len(tokens) > 2 {
		return nil, bot.InvalidArgs("%s", c.Help())
	}
	for _, t := range tokens {
		if t == "@everyone" || t == "@here" {
			return nil, bot.InvalidArgs("You can't do that, you sneak")
		}
	}

	if len(tokens) < 2 {
		return SizeArgs{}, nil
	}
	mention := tokens[1]
	if !mentionPattern.MatchString(mention) {
		return nil, bot.InvalidArgs("Mention a valid user, with @ please")
	}
	targetID := strings.TrimSuffix(strings.TrimPrefix(mention, "<@"), ">")
	return SizeArgs{TargetID: targetID}, nil
}

func (c *Size) Execute(ctx context.Context, inv *bot.Invocation, args any) error {
	a := args.(SizeArgs)
	msg := inv.Message

	if a.TargetID != "" {
		return c.peek(ctx, msg, a.TargetID)
	}

	user, err := c.repo.Observe(ctx, msg.AuthorID, msg.AuthorName)
	if err != nil {
		return err
	}

	now := c.now()
	hadSize := user.AttributeSize != nil

	if user.CanReroll(now, sizeResetInterval) {
		size := c.roll()
		roleName := fmt.Sprintf("%dcm", size)
		roleID := ""
		if hadSize {
			roleID = user.AttributeSize.Role.ID
		}
		role, err := ensureRole(ctx, c.messenger, msg.GuildID, msg.AuthorID, roleID, roleName, 0, false)
		if err != nil {
			return err
		}
		user.AttributeSize = &domain.AttributeSize{Role: role, Size: size, RolledAt: now}
		if err := c.repo.Upsert(ctx, user); err != nil {
			return err
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s you measure %dcm...\n", msg.AuthorMention, user.AttributeSize.Size)
	if hadSize && !user.CanReroll(now, sizeResetInterval) {
		remaining := user.AttributeSize.RolledAt.Add(sizeResetInterval).Sub(now)
		fmt.Fprintf(&b, "* %s left until you can measure again. Who knows, it might grow.\n",
			formatRemaining(remaining))
	}

	_, err = c.messenger.Send(ctx, msg.ChannelID, b.String())
	return err
}

func (c *Size) peek(ctx context.Context, msg *platform.Message, targetID string) error {
	member, err := c.messenger.Member(ctx, msg.GuildID, targetID)
	if err != nil {
		return err
	}
	target, err := c.repo.Observe(ctx, targetID, member.DisplayName)
	if err != nil {
		return err
	}

	if target.AttributeSize == nil {
		content := fmt.Sprintf(
			"%s %s hasn't been measured yet, but don't be sad...\nTell %s to run `!size`",
			msg.AuthorMention, member.Mention, member.Mention)
		_, err := c.messenger.Send(ctx, msg.ChannelID, content)
		return err
	}

	content := fmt.Sprintf("%s, you sneak, %s measures %dcm. Happy now? 😏",
		msg.AuthorMention, member.Mention, target.AttributeSize.Size)
	_, err = c.messenger.Send(ctx, msg.ChannelID, content)
	return err
}
