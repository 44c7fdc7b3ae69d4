// Package domain contains core domain types for the K9 bot.
package domain

import (
	"time"
)

// Role is a platform role owned by a user, either their personal role or
// the role carrying their attribute size.
type Role struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// AttributeSize is the result of the size roll: the backing platform role,
// the rolled magnitude and when it was last (re)rolled.
type AttributeSize struct {
	Role     Role      `json:"role"`
	Size     int       `json:"size"`
	RolledAt time.Time `json:"rolled_at"`
}

// User is one record per platform member. The internal ID is assigned at
// first sight; all lookups go through the platform ID.
type User struct {
	ID                   string
	PlatformID           string
	Name                 string
	PersonalRole         *Role
	AttributeSize        *AttributeSize
	WinCount             int
	OwnedCreatures       []int
	CaptureCooldownUntil *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CanReroll reports whether the attribute size may be rolled again, i.e.
// the user has no stored size or the reset interval has elapsed.
func (u *User) CanReroll(now time.Time, interval time.Duration) bool {
	if u.AttributeSize == nil {
		return true
	}
	return u.AttributeSize.RolledAt.Add(interval).Before(now)
}

// OnCaptureCooldown reports whether the creature capture cooldown is active.
func (u *User) OnCaptureCooldown(now time.Time) bool {
	return u.CaptureCooldownUntil != nil && now.Before(*u.CaptureCooldownUntil)
}

// OwnsCreature reports whether the user has captured the given creature.
func (u *User) OwnsCreature(creatureID int) bool {
	for _, id := range u.OwnedCreatures {
		if id == creatureID {
			return true
		}
	}
	return false
}
