package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
	"github.com/joaoseidel/k9/internal/store"
)

const rankPageSize = 10

// RankArgs are the parsed arguments of the rank command.
type RankArgs struct {
	Page int // zero-based
}

// Rank shows the server's size leaderboard, paged.
type Rank struct {
	messenger platform.Messenger
	repo      store.Repository
}

// NewRank builds the rank command.
func NewRank(messenger platform.Messenger, repo store.Repository) *Rank {
	return &Rank{messenger: messenger, repo: repo}
}

func (c *Rank) Name() string        { return "Rank" }
func (c *Rank) Description() string { return "Shows the server's size ranking" }
func (c *Rank) Help() string        { return "**Use**: !rank [page]" }

func (c *Rank) Matches(input string) bool {
	return strings.HasPrefix(input, "!rank")
}

func (c *Rank) Parse(tokens []string) (any, error) {
	page, err := parsePage(tokens)
	if err != nil {
		return nil, err
	}
	return RankArgs{Page: page}, nil
}

func (c *Rank) Execute(ctx context.Context, inv *bot.Invocation, args any) error {
	a := args.(RankArgs)

	users, err := c.repo.ListRanked(ctx, a.Page, rankPageSize)
	if err != nil {
		return err
	}
	total, err := c.repo.CountWithAttribute(ctx)
	if err != nil {
		return err
	}

	page := a.Page + 1
	totalPages := (total + rankPageSize - 1) / rankPageSize

	var b strings.Builder
	b.WriteString("**Top sizes of the server**:\n")
	for i, user := range users {
		rank := i + 1 + a.Page*rankPageSize
		fmt.Fprintf(&b, "%s. %s with %dcm\n",
			rankMarker(rank), platform.MentionUser(user.PlatformID), user.AttributeSize.Size)
	}
	fmt.Fprintf(&b, "**Page [%d of %d]**", page, totalPages)

	_, err = c.messenger.Send(ctx, inv.Message.ChannelID, b.String())
	return err
}
