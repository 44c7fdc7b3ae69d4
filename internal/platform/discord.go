package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// Discord implements Messenger on top of a discordgo session.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord wraps an opened (or about to be opened) discordgo session.
func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

// BotUserID returns the id of the bot's own user, or "" before login.
func (d *Discord) BotUserID() string {
	if d.session.State != nil && d.session.State.User != nil {
		return d.session.State.User.ID
	}
	return ""
}

// OnMessageCreate registers a handler for message-created gateway events.
func (d *Discord) OnMessageCreate(fn func(Message)) {
	d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		fn(Message{
			ID:            m.ID,
			ChannelID:     m.ChannelID,
			GuildID:       m.GuildID,
			AuthorID:      m.Author.ID,
			AuthorName:    effectiveName(m.Member, m.Author),
			AuthorMention: m.Author.Mention(),
			AuthorIsBot:   m.Author.Bot,
			Content:       m.Content,
		})
	})
}

// OnReactionAdd registers a handler for reaction-added gateway events.
// Reactions added by the bot itself are filtered out.
func (d *Discord) OnReactionAdd(fn func(Reaction)) {
	d.session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.UserID == d.BotUserID() {
			return
		}
		fn(Reaction{
			MessageID: r.MessageID,
			ChannelID: r.ChannelID,
			UserID:    r.UserID,
			Emoji:     r.Emoji.APIName(),
		})
	})
}

func effectiveName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

func (d *Discord) Send(ctx context.Context, channelID, content string) (string, error) {
	msg, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return msg.ID, nil
}

func (d *Discord) SendEmbed(ctx context.Context, channelID string, embed Embed) (string, error) {
	e := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	if embed.ImageURL != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: embed.ImageURL}
	}
	for _, f := range embed.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if embed.FooterText != "" {
		e.Footer = &discordgo.MessageEmbedFooter{
			Text:    embed.FooterText,
			IconURL: embed.FooterIconURL,
		}
	}
	msg, err := d.session.ChannelMessageSendEmbed(channelID, e, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send embed: %w", err)
	}
	return msg.ID, nil
}

func (d *Discord) Reply(ctx context.Context, channelID, messageID, content string) (string, error) {
	return d.reply(ctx, channelID, messageID, content, 0)
}

func (d *Discord) ReplyNoPreview(ctx context.Context, channelID, messageID, content string) (string, error) {
	return d.reply(ctx, channelID, messageID, content, discordgo.MessageFlagsSuppressEmbeds)
}

func (d *Discord) reply(ctx context.Context, channelID, messageID, content string, flags discordgo.MessageFlags) (string, error) {
	msg, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Flags:   flags,
		Reference: &discordgo.MessageReference{
			MessageID: messageID,
			ChannelID: channelID,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("reply to message: %w", err)
	}
	return msg.ID, nil
}

func (d *Discord) Edit(ctx context.Context, channelID, messageID, content string) error {
	if _, err := d.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (d *Discord) Typing(ctx context.Context, channelID string) error {
	if err := d.session.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("typing indicator: %w", err)
	}
	return nil
}

func (d *Discord) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := d.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	return nil
}

func (d *Discord) RemoveOwnReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := d.session.MessageReactionRemove(channelID, messageID, emoji, "@me", discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("remove own reaction: %w", err)
	}
	return nil
}

func (d *Discord) RemoveAllReactions(ctx context.Context, channelID, messageID string) error {
	if err := d.session.MessageReactionsRemoveAll(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("remove all reactions: %w", err)
	}
	return nil
}

func (d *Discord) CreateRole(ctx context.Context, guildID, name string, color int, hoist bool) (Role, error) {
	mentionable := true
	role, err := d.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Color:       &color,
		Hoist:       &hoist,
		Mentionable: &mentionable,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Role{}, fmt.Errorf("create role: %w", err)
	}
	return Role{ID: role.ID, Name: role.Name, Color: role.Color}, nil
}

func (d *Discord) EditRole(ctx context.Context, guildID, roleID, name string, color int, hoist bool) (Role, error) {
	mentionable := true
	role, err := d.session.GuildRoleEdit(guildID, roleID, &discordgo.RoleParams{
		Name:        name,
		Color:       &color,
		Hoist:       &hoist,
		Mentionable: &mentionable,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Role{}, fmt.Errorf("edit role: %w", err)
	}
	return Role{ID: role.ID, Name: role.Name, Color: role.Color}, nil
}

func (d *Discord) DeleteRole(ctx context.Context, guildID, roleID string) error {
	if err := d.session.GuildRoleDelete(guildID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

func (d *Discord) AssignRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// MoveRoleToTop pushes the role just under the highest role in the guild so
// freshly customized roles always render on top of the member list.
func (d *Discord) MoveRoleToTop(ctx context.Context, guildID, roleID string) error {
	roles, err := d.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Position > roles[j].Position })
	if len(roles) == 0 {
		return nil
	}
	top := roles[0].Position
	for _, r := range roles {
		if r.ID == roleID {
			r.Position = top - 1
		} else if r.Position >= top-1 && r.ID != roles[0].ID {
			r.Position--
		}
	}
	if _, err := d.session.GuildRoleReorder(guildID, roles, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("reorder roles: %w", err)
	}
	return nil
}

func (d *Discord) Member(ctx context.Context, guildID, userID string) (Member, error) {
	m, err := d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return Member{}, fmt.Errorf("fetch member: %w", err)
	}
	return Member{
		ID:          userID,
		DisplayName: effectiveName(m, m.User),
		Mention:     MentionUser(userID),
	}, nil
}

func (d *Discord) GuildIDForChannel(ctx context.Context, channelID string) (string, error) {
	ch, err := d.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch channel: %w", err)
	}
	return ch.GuildID, nil
}
