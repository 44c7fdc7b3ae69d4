// Package platformtest provides an in-memory Messenger for tests.
package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/joaoseidel/k9/internal/platform"
)

// SentMessage records one outbound message.
type SentMessage struct {
	ChannelID string
	MessageID string
	ReplyTo   string
	Content   string
	Embed     *platform.Embed
	NoPreview bool
}

// Fake is an in-memory platform.Messenger. Every operation succeeds unless a
// matching entry in Fail is set.
type Fake struct {
	mu sync.Mutex

	Messages  []SentMessage
	Reactions map[string][]string // messageID -> emoji added by the bot
	Roles     map[string]platform.Role
	Members   map[string]platform.Member
	GuildID   string

	// Fail maps an operation name ("Send", "DeleteRole", ...) to an error
	// returned by every call of that operation.
	Fail map[string]error

	nextID   int
	assigned []string // "guildID/userID/roleID"
	deleted  []string // deleted role ids
	topRole  string
}

// NewFake returns an empty fake bound to one guild.
func NewFake() *Fake {
	return &Fake{
		Reactions: make(map[string][]string),
		Roles:     make(map[string]platform.Role),
		Members:   make(map[string]platform.Member),
		Fail:      make(map[string]error),
		GuildID:   "guild-1",
	}
}

func (f *Fake) fail(op string) error {
	if err, ok := f.Fail[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) newID() string {
	f.nextID++
	return "msg-" + strconv.Itoa(f.nextID)
}

func (f *Fake) record(m SentMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.MessageID = f.newID()
	f.Messages = append(f.Messages, m)
	return m.MessageID, nil
}

// Sent returns a copy of all recorded outbound messages.
func (f *Fake) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMessage, len(f.Messages))
	copy(out, f.Messages)
	return out
}

// LastContent returns the content of the most recent message, or "".
func (f *Fake) LastContent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Messages) == 0 {
		return ""
	}
	return f.Messages[len(f.Messages)-1].Content
}

// ReactionsOn returns a copy of the bot's reactions on a message.
func (f *Fake) ReactionsOn(messageID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Reactions[messageID]))
	copy(out, f.Reactions[messageID])
	return out
}

// DeletedRoles returns the ids passed to DeleteRole, in order.
func (f *Fake) DeletedRoles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

func (f *Fake) Send(_ context.Context, channelID, content string) (string, error) {
	if err := f.fail("Send"); err != nil {
		return "", err
	}
	return f.record(SentMessage{ChannelID: channelID, Content: content})
}

func (f *Fake) SendEmbed(_ context.Context, channelID string, embed platform.Embed) (string, error) {
	if err := f.fail("SendEmbed"); err != nil {
		return "", err
	}
	return f.record(SentMessage{ChannelID: channelID, Embed: &embed})
}

func (f *Fake) Reply(_ context.Context, channelID, messageID, content string) (string, error) {
	if err := f.fail("Reply"); err != nil {
		return "", err
	}
	return f.record(SentMessage{ChannelID: channelID, ReplyTo: messageID, Content: content})
}

func (f *Fake) ReplyNoPreview(_ context.Context, channelID, messageID, content string) (string, error) {
	if err := f.fail("ReplyNoPreview"); err != nil {
		return "", err
	}
	return f.record(SentMessage{ChannelID: channelID, ReplyTo: messageID, Content: content, NoPreview: true})
}

func (f *Fake) Edit(_ context.Context, _, messageID, content string) error {
	if err := f.fail("Edit"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Messages {
		if f.Messages[i].MessageID == messageID {
			f.Messages[i].Content = content
		}
	}
	return nil
}

func (f *Fake) Typing(context.Context, string) error { return f.fail("Typing") }

func (f *Fake) AddReaction(_ context.Context, _, messageID, emoji string) error {
	if err := f.fail("AddReaction"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions[messageID] = append(f.Reactions[messageID], emoji)
	return nil
}

func (f *Fake) RemoveOwnReaction(_ context.Context, _, messageID, emoji string) error {
	if err := f.fail("RemoveOwnReaction"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.Reactions[messageID][:0]
	for _, e := range f.Reactions[messageID] {
		if e != emoji {
			kept = append(kept, e)
		}
	}
	f.Reactions[messageID] = kept
	return nil
}

func (f *Fake) RemoveAllReactions(_ context.Context, _, messageID string) error {
	if err := f.fail("RemoveAllReactions"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Reactions, messageID)
	return nil
}

func (f *Fake) CreateRole(_ context.Context, _, name string, color int, _ bool) (platform.Role, error) {
	if err := f.fail("CreateRole"); err != nil {
		return platform.Role{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	role := platform.Role{ID: "role-" + strconv.Itoa(f.nextID), Name: name, Color: color}
	f.Roles[role.ID] = role
	return role, nil
}

func (f *Fake) EditRole(_ context.Context, _, roleID, name string, color int, _ bool) (platform.Role, error) {
	if err := f.fail("EditRole"); err != nil {
		return platform.Role{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Roles[roleID]; !ok {
		return platform.Role{}, fmt.Errorf("unknown role %s", roleID)
	}
	role := platform.Role{ID: roleID, Name: name, Color: color}
	f.Roles[roleID] = role
	return role, nil
}

func (f *Fake) DeleteRole(_ context.Context, _, roleID string) error {
	if err := f.fail("DeleteRole"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Roles, roleID)
	f.deleted = append(f.deleted, roleID)
	return nil
}

func (f *Fake) AssignRole(_ context.Context, guildID, userID, roleID string) error {
	if err := f.fail("AssignRole"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned = append(f.assigned, guildID+"/"+userID+"/"+roleID)
	return nil
}

func (f *Fake) MoveRoleToTop(_ context.Context, _, roleID string) error {
	if err := f.fail("MoveRoleToTop"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topRole = roleID
	return nil
}

// TopRole returns the role last moved to the top.
func (f *Fake) TopRole() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topRole
}

func (f *Fake) Member(_ context.Context, _, userID string) (platform.Member, error) {
	if err := f.fail("Member"); err != nil {
		return platform.Member{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Members[userID]; ok {
		return m, nil
	}
	return platform.Member{ID: userID, DisplayName: userID, Mention: platform.MentionUser(userID)}, nil
}

func (f *Fake) GuildIDForChannel(context.Context, string) (string, error) {
	if err := f.fail("GuildIDForChannel"); err != nil {
		return "", err
	}
	return f.GuildID, nil
}
