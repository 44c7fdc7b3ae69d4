// K9 - Discord companion bot
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/joaoseidel/k9/internal/assistant"
	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/command"
	"github.com/joaoseidel/k9/internal/config"
	"github.com/joaoseidel/k9/internal/creatures"
	"github.com/joaoseidel/k9/internal/game"
	"github.com/joaoseidel/k9/internal/job"
	"github.com/joaoseidel/k9/internal/platform"
	"github.com/joaoseidel/k9/internal/store"
)

const (
	commandsTimeout = 5 * time.Second
	chatTimeout     = 30 * time.Second
	guessTimeout    = 60 * time.Second
	captureTimeout  = 60 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		slog.Error("Failed to create Discord session", "error", err)
		os.Exit(1)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messenger := platform.NewDiscord(session)
	aiClient := assistant.NewClient(cfg.OpenAIKey)
	poller := assistant.NewPoller(aiClient, logger)
	index := creatures.NewClient()

	reactions := bot.NewReactionRouter()
	sessions := game.NewRunner(ctx, messenger, reactions, aiClient, poller, cfg.GuessAssistantID, logger)
	captures := game.NewCaptureRunner(ctx, messenger, reactions, repo, logger)

	// The commands channel takes the regular commands plus redirect stubs
	// pointing at the dedicated channels.
	guessCmd := command.NewGuess(messenger, aiClient, poller, sessions, cfg.GuessAssistantID)
	creatureCmd := command.NewCreature(messenger, repo, index, captures)

	generalCommands := []bot.Command{
		command.NewDice(messenger),
		command.NewSize(messenger, repo),
		command.NewRank(messenger, repo),
		command.NewRoleCustom(messenger, repo),
		command.NewRedirect(messenger, guessCmd.Name(), guessCmd.Description(), "!guess",
			cfg.GuessChannelID, "play the guessing game"),
		command.NewRedirect(messenger, creatureCmd.Name(), creatureCmd.Description(), "!creature",
			cfg.CaptureChannelID, "hunt creatures"),
	}
	generalCommands = append(generalCommands, command.NewHelp(messenger, generalCommands))

	dispatchers := []*bot.Dispatcher{
		bot.NewDispatcher(bot.DispatcherConfig{
			Lane:      bot.NewLane("commands"),
			ChannelID: cfg.CommandsChannelID,
			Timeout:   commandsTimeout,
			Commands:  generalCommands,
			Messenger: messenger,
			Logger:    logger,
		}),
		bot.NewDispatcher(bot.DispatcherConfig{
			Lane:      bot.NewLane("chat"),
			ChannelID: cfg.ChatChannelID,
			Timeout:   chatTimeout,
			Commands: []bot.Command{
				command.NewChat(messenger, aiClient, poller,
					cfg.ChatAssistantID, cfg.ChatThreadID, cfg.CommandsChannelID),
			},
			BusyReply: command.BusyChatReply,
			Messenger: messenger,
			Logger:    logger,
		}),
		bot.NewDispatcher(bot.DispatcherConfig{
			Lane:      bot.NewLane("guess"),
			ChannelID: cfg.GuessChannelID,
			Timeout:   guessTimeout,
			Commands:  []bot.Command{guessCmd},
			Fallback:  helpFallback(messenger, guessCmd, logger),
			Messenger: messenger,
			Logger:    logger,
		}),
		bot.NewDispatcher(bot.DispatcherConfig{
			Lane:      bot.NewLane("capture"),
			ChannelID: cfg.CaptureChannelID,
			Timeout:   captureTimeout,
			Commands:  []bot.Command{creatureCmd},
			Fallback:  helpFallback(messenger, creatureCmd, logger),
			Messenger: messenger,
			Logger:    logger,
		}),
	}

	messenger.OnMessageCreate(func(msg platform.Message) {
		for _, d := range dispatchers {
			d.HandleMessage(ctx, &msg)
		}
	})
	messenger.OnReactionAdd(func(r platform.Reaction) {
		reactions.Dispatch(r)
	})

	location, err := time.LoadLocation(cfg.ResetTimezone)
	if err != nil {
		slog.Error("Failed to load reset timezone", "timezone", cfg.ResetTimezone, "error", err)
		os.Exit(1)
	}
	schedule, err := cron.ParseStandard(cfg.ResetSchedule)
	if err != nil {
		slog.Error("Failed to parse reset schedule", "schedule", cfg.ResetSchedule, "error", err)
		os.Exit(1)
	}
	nextReset := func(from time.Time) time.Time {
		return schedule.Next(from.In(location))
	}
	reset := job.NewWeeklyReset(repo, messenger, cfg.CommandsChannelID, nextReset, logger)

	scheduler := cron.New(cron.WithLocation(location))
	if _, err := scheduler.AddFunc(cfg.ResetSchedule, func() {
		if err := reset.Run(ctx); err != nil {
			slog.Error("Weekly reset failed", "error", err)
		}
	}); err != nil {
		slog.Error("Failed to schedule weekly reset", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if err := session.Open(); err != nil {
		slog.Error("Failed to open Discord gateway", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			slog.Error("Failed to close Discord gateway", "error", closeErr)
		}
	}()
	slog.Info("Gateway connected, K9 is on duty")

	<-ctx.Done()
	slog.Info("Shutting down")
}

// helpFallback answers off-topic chatter in a single-command channel with
// that command's usage.
func helpFallback(messenger platform.Messenger, cmd bot.Command, logger *slog.Logger) bot.Fallback {
	return func(ctx context.Context, msg *platform.Message) {
		content := cmd.Description() + ".\n" + cmd.Help()
		if _, err := messenger.ReplyNoPreview(ctx, msg.ChannelID, msg.ID, content); err != nil {
			logger.Error("failed to send channel help", "error", err)
		}
	}
}
