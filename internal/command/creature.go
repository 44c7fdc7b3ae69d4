package command

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/creatures"
	"github.com/joaoseidel/k9/internal/domain"
	"github.com/joaoseidel/k9/internal/game"
	"github.com/joaoseidel/k9/internal/platform"
	"github.com/joaoseidel/k9/internal/store"
)

const (
	// captureCooldown is how long after an encounter a user must wait before
	// rolling new creatures.
	captureCooldown = 10 * time.Hour

	candidateCount = 5

	embedColorOwned = 0xED4245
	embedColorFree  = 0x57F287
)

// CreatureLookup fetches creature profiles from the index.
type CreatureLookup interface {
	Creature(ctx context.Context, id int) (*creatures.Creature, error)
}

// Creature rolls a batch of random creatures and opens a capture round on
// the free ones.
type Creature struct {
	messenger platform.Messenger
	repo      store.Repository
	index     CreatureLookup
	captures  *game.CaptureRunner

	now  func() time.Time
	pick func() int
}

// NewCreature builds the creature command.
func NewCreature(messenger platform.Messenger, repo store.Repository, index CreatureLookup, captures *game.CaptureRunner) *Creature {
	return &Creature{
		messenger: messenger,
		repo:      repo,
		index:     index,
		captures:  captures,
		now:       time.Now,
		pick:      func() int { return 1 + rand.IntN(creatures.MaxID) },
	}
}

func (c *Creature) Name() string        { return "Creature" }
func (c *Creature) Description() string { return "Goes hunting for wild creatures" }
func (c *Creature) Help() string        { return "**Use**: !creature" }

func (c *Creature) Matches(input string) bool {
	return strings.HasPrefix(input, "!creature")
}

func (c *Creature) Parse(tokens []string) (any, error) {
	if len(tokens) > 1 {
		return nil, bot.InvalidArgs("%s", c.Help())
	}
	return nil, nil
}

func (c *Creature) Execute(ctx context.Context, inv *bot.Invocation, _ any) error {
	msg := inv.Message

	user, err := c.repo.Observe(ctx, msg.AuthorID, msg.AuthorName)
	if err != nil {
		return err
	}

	now := c.now()
	if user.OnCaptureCooldown(now) {
		remaining := user.CaptureCooldownUntil.Sub(now)
		content := fmt.Sprintf("%s you already went hunting today. You can go again in %s.",
			msg.AuthorMention, formatRemaining(remaining))
		_, err := c.messenger.Send(ctx, msg.ChannelID, content)
		return err
	}

	_ = c.messenger.Typing(ctx, msg.ChannelID)

	seen := make(map[int]bool, candidateCount)
	caught := make([]*creatures.Creature, 0, candidateCount)
	for len(caught) < candidateCount {
		id := c.pick()
		if seen[id] {
			continue
		}
		seen[id] = true
		creature, err := c.index.Creature(ctx, id)
		if err != nil {
			return fmt.Errorf("fetch creature %d: %w", id, err)
		}
		caught = append(caught, creature)
	}

	candidates := make([]game.Candidate, 0, candidateCount)
	for _, creature := range caught {
		owner, err := c.repo.FindCreatureOwner(ctx, creature.ID)
		if err != nil {
			return err
		}
		messageID, err := c.messenger.SendEmbed(ctx, msg.ChannelID, creatureEmbed(creature, ownerName(owner)))
		if err != nil {
			return err
		}
		if owner != nil {
			continue
		}
		if err := c.messenger.AddReaction(ctx, msg.ChannelID, messageID, game.EmojiCapture); err != nil {
			return err
		}
		candidates = append(candidates, game.Candidate{
			MessageID:  messageID,
			CreatureID: creature.ID,
			Name:       creature.Name,
		})
	}

	until := now.Add(captureCooldown)
	user.CaptureCooldownUntil = &until
	if err := c.repo.Upsert(ctx, user); err != nil {
		return err
	}

	if len(candidates) == 0 {
		content := fmt.Sprintf("%s every creature you found already has an owner. Better luck next time.",
			msg.AuthorMention)
		_, err := c.messenger.Send(ctx, msg.ChannelID, content)
		return err
	}

	c.captures.Start(game.CaptureRound{
		ChannelID:        msg.ChannelID,
		CommandMessageID: msg.ID,
		UserID:           msg.AuthorID,
		UserMention:      msg.AuthorMention,
		Candidates:       candidates,
	})
	return nil
}

func creatureEmbed(creature *creatures.Creature, owner string) platform.Embed {
	embed := platform.Embed{
		Title:    creature.Name,
		ImageURL: creature.ImageURL,
		Color:    embedColorFree,
		Fields: []platform.EmbedField{
			{Name: "Level", Value: joinOrDash(creature.Levels), Inline: true},
			{Name: "Type", Value: joinOrDash(creature.Types), Inline: true},
			{Name: "Attribute", Value: joinOrDash(creature.Attributes), Inline: true},
			{Name: "Skills", Value: joinOrDash(creature.Skills)},
		},
	}
	if owner != "" {
		embed.Color = embedColorOwned
		embed.FooterText = fmt.Sprintf("Owned by %s", owner)
	}
	return embed
}

func ownerName(owner *domain.User) string {
	if owner == nil {
		return ""
	}
	return owner.Name
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
