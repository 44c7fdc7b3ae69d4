// Package storetest provides an in-memory Repository for tests.
package storetest

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/joaoseidel/k9/internal/domain"
)

// Memory is an in-memory store.Repository.
type Memory struct {
	mu     sync.Mutex
	users  map[string]*domain.User // keyed by internal id
	nextID int

	// Err, when set, is returned by every operation.
	Err error
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]*domain.User)}
}

// Seed inserts a user directly, assigning an internal id when missing.
func (m *Memory) Seed(user *domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		m.nextID++
		user.ID = "u-" + strconv.Itoa(m.nextID)
	}
	stored := cloneUser(user)
	m.users[stored.ID] = stored
	return cloneUser(stored)
}

// Get returns a copy of the stored record by internal id, or nil.
func (m *Memory) Get(id string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (m *Memory) FindByPlatformID(_ context.Context, platformID string) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PlatformID == platformID {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *Memory) Insert(_ context.Context, user *domain.User) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	now := time.Now()
	stored := cloneUser(user)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	return m.Seed(stored), nil
}

func (m *Memory) Upsert(_ context.Context, user *domain.User) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cloneUser(user)
	stored.UpdatedAt = time.Now()
	m.users[stored.ID] = stored
	return nil
}

func (m *Memory) Observe(ctx context.Context, platformID, name string) (*domain.User, error) {
	user, err := m.FindByPlatformID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return m.Insert(ctx, &domain.User{PlatformID: platformID, Name: name})
	}
	if name != "" && user.Name != name {
		user.Name = name
		if err := m.Upsert(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (m *Memory) ListWithAttribute(context.Context) ([]*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if u.AttributeSize != nil {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].AttributeSize, out[j].AttributeSize
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.RolledAt.After(b.RolledAt)
	})
	return out, nil
}

func (m *Memory) ListRanked(ctx context.Context, page, pageSize int) ([]*domain.User, error) {
	all, err := m.ListWithAttribute(ctx)
	if err != nil {
		return nil, err
	}
	start := page * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *Memory) CountWithAttribute(ctx context.Context) (int64, error) {
	all, err := m.ListWithAttribute(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (m *Memory) ListWinners(context.Context) ([]*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if u.WinCount > 0 {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WinCount > out[j].WinCount })
	return out, nil
}

func (m *Memory) FindCreatureOwner(_ context.Context, creatureID int) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.OwnsCreature(creatureID) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *Memory) Ping(context.Context) error { return m.Err }
func (m *Memory) Close() error               { return nil }

func cloneUser(u *domain.User) *domain.User {
	out := *u
	if u.PersonalRole != nil {
		role := *u.PersonalRole
		out.PersonalRole = &role
	}
	if u.AttributeSize != nil {
		attr := *u.AttributeSize
		out.AttributeSize = &attr
	}
	if u.OwnedCreatures != nil {
		out.OwnedCreatures = append([]int(nil), u.OwnedCreatures...)
	}
	if u.CaptureCooldownUntil != nil {
		t := *u.CaptureCooldownUntil
		out.CaptureCooldownUntil = &t
	}
	return &out
}
