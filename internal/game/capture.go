package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/platform"
	"github.com/joaoseidel/k9/internal/store"
)

// EmojiCapture marks a creature as available to claim.
const EmojiCapture = "❤️"

const defaultCaptureWindow = 35 * time.Second

// Candidate is one creature offered in a capture round, keyed by the embed
// message carrying its ❤ reaction.
type Candidate struct {
	MessageID  string
	CreatureID int
	Name       string
}

// CaptureRound is one encounter: the candidates on offer and the user
// allowed to claim one of them.
type CaptureRound struct {
	ChannelID        string
	CommandMessageID string
	UserID           string
	UserMention      string
	Candidates       []Candidate
}

// CaptureRunner resolves capture rounds. Each Start spawns one goroutine
// waiting for the first ❤ from the invoking user on any candidate, or the
// window to lapse, whichever comes first.
type CaptureRunner struct {
	messenger platform.Messenger
	reactions *bot.ReactionRouter
	repo      store.Repository
	window    time.Duration
	logger    *slog.Logger

	baseCtx context.Context
}

// NewCaptureRunner builds the capture runner. ctx bounds the lifetime of
// every round it starts.
func NewCaptureRunner(ctx context.Context, messenger platform.Messenger, reactions *bot.ReactionRouter, repo store.Repository, logger *slog.Logger) *CaptureRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptureRunner{
		messenger: messenger,
		reactions: reactions,
		repo:      repo,
		window:    defaultCaptureWindow,
		logger:    logger,
		baseCtx:   ctx,
	}
}

// SetWindow overrides the capture window, used in tests.
func (r *CaptureRunner) SetWindow(d time.Duration) { r.window = d }

// Start begins the round for embeds that already carry their ❤ reactions.
func (r *CaptureRunner) Start(round CaptureRound) {
	go r.run(r.baseCtx, round)
}

func (r *CaptureRunner) run(ctx context.Context, round CaptureRound) {
	logger := r.logger.With("user_id", round.UserID, "channel_id", round.ChannelID)

	byMessage := make(map[string]Candidate, len(round.Candidates))
	ids := make([]string, 0, len(round.Candidates))
	for _, c := range round.Candidates {
		byMessage[c.MessageID] = c
		ids = append(ids, c.MessageID)
	}
	if len(ids) == 0 {
		return
	}

	feed, retire := r.reactions.Subscribe(ids...)
	defer retire()

	timer := time.NewTimer(r.window)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			retire()
			r.clearAffordances(ctx, round, ids, logger)
			reply := fmt.Sprintf("%s you didn't capture any creature :cry:", round.UserMention)
			if _, err := r.messenger.Reply(ctx, round.ChannelID, round.CommandMessageID, reply); err != nil {
				logger.Error("failed to send capture-timeout reply", "error", err)
			}
			logger.Info("capture round lapsed")
			return

		case reaction := <-feed:
			if reaction.UserID != round.UserID || reaction.Emoji != EmojiCapture {
				continue
			}
			candidate, ok := byMessage[reaction.MessageID]
			if !ok {
				continue
			}
			retire()
			r.claim(ctx, round, candidate, ids, logger)
			return
		}
	}
}

func (r *CaptureRunner) claim(ctx context.Context, round CaptureRound, candidate Candidate, ids []string, logger *slog.Logger) {
	user, err := r.repo.FindByPlatformID(ctx, round.UserID)
	if err != nil {
		logger.Error("failed to load capturing user", "error", err)
		return
	}
	if user == nil {
		logger.Error("capturing user vanished from the store", "creature_id", candidate.CreatureID)
		return
	}
	if !user.OwnsCreature(candidate.CreatureID) {
		user.OwnedCreatures = append(user.OwnedCreatures, candidate.CreatureID)
	}
	if err := r.repo.Upsert(ctx, user); err != nil {
		logger.Error("failed to persist capture", "creature_id", candidate.CreatureID, "error", err)
		reply := fmt.Sprintf("%s something broke while capturing. Try again.", round.UserMention)
		if _, rerr := r.messenger.Reply(ctx, round.ChannelID, candidate.MessageID, reply); rerr != nil {
			logger.Error("failed to send capture-failure reply", "error", rerr)
		}
		return
	}

	r.clearAffordances(ctx, round, ids, logger)
	reply := fmt.Sprintf("%s you captured %s ✨", round.UserMention, candidate.Name)
	if _, err := r.messenger.Reply(ctx, round.ChannelID, candidate.MessageID, reply); err != nil {
		logger.Error("failed to send capture reply", "error", err)
	}
	logger.Info("creature captured", "creature_id", candidate.CreatureID)
}

func (r *CaptureRunner) clearAffordances(ctx context.Context, round CaptureRound, ids []string, logger *slog.Logger) {
	for _, id := range ids {
		if err := r.messenger.RemoveOwnReaction(ctx, round.ChannelID, id, EmojiCapture); err != nil {
			logger.Warn("failed to remove capture reaction", "message_id", id, "error", err)
		}
	}
}
