package bot

import (
	"sync"

	"github.com/joaoseidel/k9/internal/platform"
)

// feedBuffer bounds how many reactions may queue per subscription before
// further ones are dropped.
const feedBuffer = 8

// ReactionRouter fans inbound reaction-added events out to the session that
// owns the reacted-to message. Sessions subscribe their open question (or
// capture candidates) and unsubscribe when the turn resolves; a reaction on
// an unsubscribed message is a no-op, which is what makes a late reaction
// lose cleanly against the idle watchdog.
type ReactionRouter struct {
	mu    sync.RWMutex
	feeds map[string]chan platform.Reaction
}

// NewReactionRouter creates an empty router.
func NewReactionRouter() *ReactionRouter {
	return &ReactionRouter{
		feeds: make(map[string]chan platform.Reaction),
	}
}

// Subscribe registers the given message ids on one shared feed and returns
// the feed plus a cancel func that retires every registration. Registering a
// message id replaces any previous subscription for it, so a new turn's
// construction atomically retires the prior turn's listener.
func (r *ReactionRouter) Subscribe(messageIDs ...string) (<-chan platform.Reaction, func()) {
	feed := make(chan platform.Reaction, feedBuffer)

	r.mu.Lock()
	for _, id := range messageIDs {
		r.feeds[id] = feed
	}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, id := range messageIDs {
			if r.feeds[id] == feed {
				delete(r.feeds, id)
			}
		}
	}
	return feed, cancel
}

// Dispatch forwards a reaction to the subscribed feed, if any. It never
// blocks: when the feed's buffer is full the reaction is dropped.
func (r *ReactionRouter) Dispatch(reaction platform.Reaction) {
	r.mu.RLock()
	feed, ok := r.feeds[reaction.MessageID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case feed <- reaction:
	default:
	}
}
