// Package job holds scheduled maintenance callbacks. Scheduling itself
// lives in main; the callbacks only know how to do the work.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joaoseidel/k9/internal/domain"
	"github.com/joaoseidel/k9/internal/platform"
	"github.com/joaoseidel/k9/internal/store"
)

// WeeklyReset clears every stored attribute size, crowns the week's biggest
// holder and posts the summary to the commands channel.
type WeeklyReset struct {
	repo      store.Repository
	messenger platform.Messenger
	channelID string

	now       func() time.Time
	nextReset func(time.Time) time.Time
	logger    *slog.Logger
}

// NewWeeklyReset builds the reset callback. nextReset computes the following
// run from a given instant, used in the summary footer; nil omits the footer.
func NewWeeklyReset(repo store.Repository, messenger platform.Messenger, channelID string, nextReset func(time.Time) time.Time, logger *slog.Logger) *WeeklyReset {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeeklyReset{
		repo:      repo,
		messenger: messenger,
		channelID: channelID,
		now:       time.Now,
		nextReset: nextReset,
		logger:    logger,
	}
}

// Run performs one reset. Holders come back sorted by size desc then
// rolled-at desc, so the first entry is the winner.
func (j *WeeklyReset) Run(ctx context.Context) error {
	holders, err := j.repo.ListWithAttribute(ctx)
	if err != nil {
		return fmt.Errorf("list attribute holders: %w", err)
	}
	if len(holders) == 0 {
		j.logger.Info("weekly reset skipped, nobody measured this week")
		return nil
	}

	guildID, err := j.messenger.GuildIDForChannel(ctx, j.channelID)
	if err != nil {
		return fmt.Errorf("resolve guild: %w", err)
	}

	winner := holders[0]
	var lines []string
	for _, user := range holders {
		size := user.AttributeSize.Size

		// Role cleanup is best effort. A missing or undeletable role must
		// not keep the rest of the reset from happening.
		if roleID := user.AttributeSize.Role.ID; roleID != "" {
			if err := j.messenger.DeleteRole(ctx, guildID, roleID); err != nil {
				j.logger.Warn("failed to delete attribute role",
					"user_id", user.PlatformID, "role_id", roleID, "error", err)
			}
		}

		user.AttributeSize = nil
		if user == winner {
			user.WinCount++
		}
		if err := j.repo.Upsert(ctx, user); err != nil {
			return fmt.Errorf("reset user %s: %w", user.PlatformID, err)
		}

		lines = append(lines, fmt.Sprintf("* %s went back to a modest size (was %dcm)",
			platform.MentionUser(user.PlatformID), size))
	}

	winners, err := j.repo.ListWinners(ctx)
	if err != nil {
		return fmt.Errorf("list winners: %w", err)
	}

	content := j.summary(lines, winner, winners)
	if _, err := j.messenger.Send(ctx, j.channelID, content); err != nil {
		return fmt.Errorf("post reset summary: %w", err)
	}

	j.logger.Info("weekly reset completed", "holders", len(holders), "winner", winner.PlatformID)
	return nil
}

func (j *WeeklyReset) summary(lines []string, winner *domain.User, winners []*domain.User) string {
	var b strings.Builder
	b.WriteString("**The weekly measuring tape has spoken!**\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%s had the biggest one this week. Congratulations, I guess. 🏆\n",
		platform.MentionUser(winner.PlatformID))

	if len(winners) > 0 {
		b.WriteString("\n**All-time winners**:\n")
		for i, user := range winners {
			wins := "wins"
			if user.WinCount == 1 {
				wins = "win"
			}
			fmt.Fprintf(&b, "%s %s with %d %s\n",
				winMarker(i+1), platform.MentionUser(user.PlatformID), user.WinCount, wins)
		}
	}

	if j.nextReset != nil {
		next := j.nextReset(j.now())
		fmt.Fprintf(&b, "\nNext measuring: %s", next.Format("Monday, Jan 2 at 15:04"))
	}
	return b.String()
}

func winMarker(rank int) string {
	switch rank {
	case 1:
		return ":first_place:"
	case 2:
		return ":second_place:"
	case 3:
		return ":third_place:"
	default:
		return strconv.Itoa(rank)
	}
}
