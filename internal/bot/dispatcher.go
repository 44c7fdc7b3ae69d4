package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joaoseidel/k9/internal/assistant"
	"github.com/joaoseidel/k9/internal/platform"
)

// Fixed user-facing replies for the three dispatcher failure tiers.
const (
	timeoutReply = "I took so long to answer that it broke. Try again."
	genericReply = "Something just broke here. Try again."

	// DefaultBusyReply is the stock busy rejection used by command lanes.
	DefaultBusyReply = "I'm busy right now, try again later."
)

// Fallback handles a message that matched no command. Lane-specific: the chat
// lane answers with AI chat, dedicated command lanes reply with help, the
// general command lane stays silent.
type Fallback func(ctx context.Context, msg *platform.Message)

// DispatcherConfig wires one dispatcher to its lane and channel.
type DispatcherConfig struct {
	Lane      *Lane
	ChannelID string
	Timeout   time.Duration
	Commands  []Command
	Fallback  Fallback
	BusyReply string
	Messenger platform.Messenger
	Logger    *slog.Logger
}

// Dispatcher routes inbound messages of one channel to at most one matching
// command, enforcing the lane's single-flight bound and a wall-clock timeout.
// No failure ever propagates out of HandleMessage; the surrounding gateway
// event loop must survive anything a command does.
type Dispatcher struct {
	lane      *Lane
	channelID string
	timeout   time.Duration
	commands  []Command
	fallback  Fallback
	busyReply string
	messenger platform.Messenger
	logger    *slog.Logger
}

// NewDispatcher builds a dispatcher from its config.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	busy := cfg.BusyReply
	if busy == "" {
		busy = DefaultBusyReply
	}
	return &Dispatcher{
		lane:      cfg.Lane,
		channelID: cfg.ChannelID,
		timeout:   cfg.Timeout,
		commands:  cfg.Commands,
		fallback:  cfg.Fallback,
		busyReply: busy,
		messenger: cfg.Messenger,
		logger:    logger.With("lane", cfg.Lane.Name()),
	}
}

// HandleMessage processes one message-created event. ctx is the gateway
// context; the lane timeout only bounds the command execution itself, so
// error replies still go out after a timeout fires.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *platform.Message) {
	if msg.AuthorIsBot {
		return
	}
	if msg.ChannelID != d.channelID {
		return
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}

	cmd := d.match(content)
	if cmd == nil {
		if d.fallback != nil {
			d.fallback(ctx, msg)
		}
		return
	}

	// Fast pre-check so a held lane answers without the timeout machinery.
	if !d.lane.Available() || !d.lane.TryAcquire() {
		d.replyBusy(ctx, msg)
		return
	}
	defer d.lane.Release()

	d.logger.Info("command received", "command", cmd.Name(), "author", msg.AuthorID, "content", content)
	_ = d.messenger.Typing(ctx, msg.ChannelID)

	execCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.run(execCtx, cmd, msg, content)
	if err == nil {
		return
	}

	var invalid *InvalidArgumentsError
	switch {
	case errors.As(err, &invalid):
		d.logger.Error("invalid arguments", "command", cmd.Name(), "error", err)
		if _, rerr := d.messenger.ReplyNoPreview(ctx, msg.ChannelID, msg.ID, invalid.Message); rerr != nil {
			d.logger.Error("failed to send invalid-arguments reply", "error", rerr)
		}
	case errors.Is(err, context.DeadlineExceeded):
		d.logger.Error("command timed out", "command", cmd.Name(), "timeout", d.timeout, "error", err)
		if _, rerr := d.messenger.Reply(ctx, msg.ChannelID, msg.ID, timeoutReply); rerr != nil {
			d.logger.Error("failed to send timeout reply", "error", rerr)
		}
	case errors.Is(err, assistant.ErrRateLimited):
		d.logger.Error("assistant rate limited", "command", cmd.Name(), "error", err)
		if _, rerr := d.messenger.Reply(ctx, msg.ChannelID, msg.ID, assistant.RateLimitedReply); rerr != nil {
			d.logger.Error("failed to send rate-limit reply", "error", rerr)
		}
	default:
		d.logger.Error("command failed", "command", cmd.Name(), "error", err)
		if _, rerr := d.messenger.Reply(ctx, msg.ChannelID, msg.ID, genericReply); rerr != nil {
			d.logger.Error("failed to send error reply", "error", rerr)
		}
	}
}

func (d *Dispatcher) match(content string) Command {
	for _, cmd := range d.commands {
		if cmd.Matches(content) {
			return cmd
		}
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, cmd Command, msg *platform.Message, content string) error {
	args, err := cmd.Parse(strings.Fields(content))
	if err != nil {
		return err
	}
	if err := cmd.Execute(ctx, &Invocation{Message: msg}, args); err != nil {
		// A command interrupted by the lane timeout usually reports the
		// context error wrapped; normalize so the timeout tier catches it.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return ctx.Err()
}

func (d *Dispatcher) replyBusy(ctx context.Context, msg *platform.Message) {
	d.logger.Info("lane busy, rejecting", "author", msg.AuthorID)
	if _, err := d.messenger.Reply(ctx, msg.ChannelID, msg.ID, d.busyReply); err != nil {
		d.logger.Error("failed to send busy reply", "error", err)
	}
}
