// Package command implements the bot's commands: dice rolls, the attribute
// size game and its ranking, personal role customization, creature capture,
// the guessing-game starter and free-form AI chat.
package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/domain"
	"github.com/joaoseidel/k9/internal/platform"
)

// parsePage reads an optional 1-based page token and returns the zero-based
// page index.
func parsePage(tokens []string) (int, error) {
	if len(tokens) < 2 {
		return 0, nil
	}
	page, err := strconv.Atoi(tokens[1])
	if err != nil {
		return 0, bot.InvalidArgs("The page must be a number")
	}
	if page < 1 {
		return 0, bot.InvalidArgs("The page must be greater than 0")
	}
	return page - 1, nil
}

// formatRemaining renders a duration as "3h07" the way cooldown replies show
// remaining time.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) - hours*60
	return fmt.Sprintf("%dh%02d", hours, minutes)
}

// rankMarker renders medal emoji for the podium and the plain number after.
func rankMarker(rank int) string {
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

// ensureRole creates or updates a member's role and assigns it, returning the
// stored triple.
func ensureRole(ctx context.Context, messenger platform.Messenger, guildID, userID, roleID, name string, color int, hoist bool) (domain.Role, error) {
	var (
		role platform.Role
		err  error
	)
	if roleID != "" {
		role, err = messenger.EditRole(ctx, guildID, roleID, name, color, hoist)
	} else {
		role, err = messenger.CreateRole(ctx, guildID, name, color, hoist)
	}
	if err != nil {
		return domain.Role{}, err
	}
	if err := messenger.AssignRole(ctx, guildID, userID, role.ID); err != nil {
		return domain.Role{}, err
	}
	return domain.Role{ID: role.ID, Name: role.Name, Color: role.Color}, nil
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
