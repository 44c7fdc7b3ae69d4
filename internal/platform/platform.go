// Package platform abstracts the chat platform the bot runs on: message
// delivery, reactions and role management. The Discord implementation lives
// in discord.go; tests use in-memory fakes.
package platform

import (
	"context"
	"fmt"
)

// Message is an inbound message-created event.
type Message struct {
	ID            string
	ChannelID     string
	GuildID       string
	AuthorID      string
	AuthorName    string
	AuthorMention string
	AuthorIsBot   bool
	Content       string
}

// Reaction is an inbound reaction-added event.
type Reaction struct {
	MessageID string
	ChannelID string
	UserID    string
	Emoji     string
}

// Member is a guild member as seen by commands.
type Member struct {
	ID          string
	DisplayName string
	Mention     string
}

// Role is a guild role.
type Role struct {
	ID    string
	Name  string
	Color int
}

// EmbedField is a single field of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message payload.
type Embed struct {
	Title         string
	Description   string
	ImageURL      string
	Color         int
	Fields        []EmbedField
	FooterText    string
	FooterIconURL string
}

// Messenger is the platform capability the bot consumes. All operations are
// network calls and fallible.
type Messenger interface {
	Send(ctx context.Context, channelID, content string) (messageID string, err error)
	SendEmbed(ctx context.Context, channelID string, embed Embed) (messageID string, err error)
	Reply(ctx context.Context, channelID, messageID, content string) (replyID string, err error)
	// ReplyNoPreview replies with link previews suppressed.
	ReplyNoPreview(ctx context.Context, channelID, messageID, content string) (replyID string, err error)
	Edit(ctx context.Context, channelID, messageID, content string) error
	Typing(ctx context.Context, channelID string) error

	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	RemoveOwnReaction(ctx context.Context, channelID, messageID, emoji string) error
	RemoveAllReactions(ctx context.Context, channelID, messageID string) error

	CreateRole(ctx context.Context, guildID, name string, color int, hoist bool) (Role, error)
	EditRole(ctx context.Context, guildID, roleID, name string, color int, hoist bool) (Role, error)
	DeleteRole(ctx context.Context, guildID, roleID string) error
	AssignRole(ctx context.Context, guildID, userID, roleID string) error
	// MoveRoleToTop reorders the guild role list so the role sits directly
	// under the bot's own role.
	MoveRoleToTop(ctx context.Context, guildID, roleID string) error

	Member(ctx context.Context, guildID, userID string) (Member, error)
	GuildIDForChannel(ctx context.Context, channelID string) (string, error)
}

// MentionUser renders a user mention.
func MentionUser(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// MentionChannel renders a channel mention.
func MentionChannel(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}
