package command

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
)

var dicePattern = regexp.MustCompile(`^!d\d+`)

// DiceArgs are the parsed arguments of the dice command.
type DiceArgs struct {
	Sides    int
	Modifier int
}

// Dice rolls an N-sided die with an optional modifier, with a little
// suspense animation before the result.
type Dice struct {
	messenger platform.Messenger

	// roll returns a value in [1, n]; replaced in tests.
	roll func(n int) int
	// stepDelay paces the suspense edits; shortened in tests.
	stepDelay time.Duration
}

// NewDice builds the dice command.
func NewDice(messenger platform.Messenger) *Dice {
	return &Dice{
		messenger: messenger,
		roll:      func(n int) int { return rand.IntN(n) + 1 },
		stepDelay: 500 * time.Millisecond,
	}
}

func (c *Dice) Name() string        { return "Dice" }
func (c *Dice) Description() string { return "Rolls an N-sided die" }
func (c *Dice) Help() string        { return "**Use**: !d<number of sides> [modifier]" }

func (c *Dice) Matches(input string) bool {
	return dicePattern.MatchString(input)
}

func (c *Dice) Parse(tokens []string) (any, error) {
	if len(tokens) == 0 || len(tokens) > 2 {
		return nil, bot.InvalidArgs("%s", c.Help())
	}

	sides, err := strconv.Atoi(strings.TrimPrefix(tokens[0], "!d"))
	if err != nil {
		return nil, bot.InvalidArgs("The number of sides must be a number")
	}
	if sides < 2 {
		return nil, bot.InvalidArgs("The number of sides must be greater than 1")
	}

	modifier := 0
	if len(tokens) == 2 {
		modifier, err = strconv.Atoi(tokens[1])
		if err != nil {
			return nil, bot.InvalidArgs("The modifier must be a number")
		}
	}

	return DiceArgs{Sides: sides, Modifier: modifier}, nil
}

func (c *Dice) Execute(ctx context.Context, inv *bot.Invocation, args any) error {
	a := args.(DiceArgs)

	rolled := c.roll(a.Sides)
	modified := rolled + a.Modifier
	if modified < 1 {
		rolled = 1
		modified = 1
	}

	text := "Rolling the die..."
	messageID, err := c.messenger.Send(ctx, inv.Message.ChannelID, text)
	if err != nil {
		return err
	}
	for i := 1; i <= 2; i++ {
		if err := sleep(ctx, c.stepDelay); err != nil {
			return err
		}
		text += fmt.Sprintf(" %d...", i)
		if err := c.messenger.Edit(ctx, inv.Message.ChannelID, messageID, text); err != nil {
			return err
		}
	}
	if err := sleep(ctx, c.stepDelay); err != nil {
		return err
	}

	var b strings.Builder
	if rolled == a.Sides {
		b.WriteString("**CRITICAL!** ")
	} else if rolled == 1 {
		b.WriteString("**CRITICAL MISS!** ")
	}
	fmt.Fprintf(&b, "%s rolled a d%d and got %d", inv.Message.AuthorMention, a.Sides, rolled)
	if a.Modifier != 0 {
		fmt.Fprintf(&b, " *(with modifier: %d)*", modified)
	}

	return c.messenger.Edit(ctx, inv.Message.ChannelID, messageID, b.String())
}
