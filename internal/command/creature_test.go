package command

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/joaoseidel/k9/internal/bot"
	"github.com/joaoseidel/k9/internal/creatures"
	"github.com/joaoseidel/k9/internal/domain"
	"github.com/joaoseidel/k9/internal/game"
	"github.com/joaoseidel/k9/internal/platform/platformtest"
	"github.com/joaoseidel/k9/internal/store/storetest"
)

type stubIndex struct {
	byID map[int]*creatures.Creature
}

func (s *stubIndex) Creature(_ context.Context, id int) (*creatures.Creature, error) {
	if c, ok := s.byID[id]; ok {
		return c, nil
	}
	return &creatures.Creature{ID: id, Name: "Creature" + string(rune('0'+id%10))}, nil
}

func testCreature(t *testing.T, fake *platformtest.Fake, repo *storetest.Memory, index *stubIndex, picks []int) *Creature {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := bot.NewReactionRouter()
	captures := game.NewCaptureRunner(ctx, fake, router, repo, logger)

	c := NewCreature(fake, repo, index, captures)
	c.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	i := 0
	c.pick = func() int {
		id := picks[i%len(picks)]
		i++
		return id
	}
	return c
}

func TestCreatureCooldownReply(t *testing.T) {
	fake := platformtest.NewFake()
	repo := storetest.NewMemory()
	until := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)
	repo.Seed(&domain.User{PlatformID: "u1", Name: "joao", CaptureCooldownUntil: &until})

	c := testCreature(t, fake, repo, &stubIndex{}, []int{1, 2, 3, 4, 5})
	if err := c.Execute(context.Background(), invocation("!creature"), nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := fake.LastContent()
	if !strings.Contains(got, "go again in 3h30") {
		t.Errorf("Expected the remaining cooldown, got %q", got)
	}
	if len(fake.Sent()) != 1 {
		t.Errorf("Expected no embeds during the cooldown, got %d messages", len(fake.Sent()))
	}
}

func TestCreatureEncounter(t *testing.T) {
	fake := platformtest.NewFake()
	repo := storetest.NewMemory()
	repo.Seed(&domain.User{PlatformID: "owner-1", Name: "pedro", OwnedCreatures: []int{3}})

	index := &stubIndex{byID: map[int]*creatures.Creature{
		3: {ID: 3, Name: "Gabumon", Types: []string{"Reptile"}},
		7: {ID: 7, Name: "Agumon", Levels: []string{"Rookie"}},
	}}
	c := testCreature(t, fake, repo, index, []int{3, 7, 11, 12, 13})

	if err := c.Execute(context.Background(), invocation("!creature"), nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var embeds []platformtest.SentMessage
	for _, m := range fake.Sent() {
		if m.Embed != nil {
			embeds = append(embeds, m)
		}
	}
	if len(embeds) != 5 {
		t.Fatalf("Expected 5 embeds, got %d", len(embeds))
	}

	owned := embeds[0]
	if owned.Embed.Color != embedColorOwned {
		t.Errorf("Expected the owned creature marked red, got %#x", owned.Embed.Color)
	}
	if !strings.Contains(owned.Embed.FooterText, "pedro") {
		t.Errorf("Expected the owner footer, got %q", owned.Embed.FooterText)
	}
	if len(fake.ReactionsOn(owned.MessageID)) != 0 {
		t.Error("Expected no capture affordance on an owned creature")
	}

	free := embeds[1]
	if free.Embed.Color != embedColorFree {
		t.Errorf("Expected a free creature marked green, got %#x", free.Embed.Color)
	}
	if got := fake.ReactionsOn(free.MessageID); len(got) != 1 || got[0] != game.EmojiCapture {
		t.Errorf("Expected the capture heart on a free creature, got %v", got)
	}

	user, _ := repo.FindByPlatformID(context.Background(), "u1")
	if user.CaptureCooldownUntil == nil {
		t.Fatal("Expected the capture cooldown armed")
	}
	want := time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC)
	if !user.CaptureCooldownUntil.Equal(want) {
		t.Errorf("Expected cooldown until %v, got %v", want, user.CaptureCooldownUntil)
	}
}

func TestCreatureAllOwned(t *testing.T) {
	fake := platformtest.NewFake()
	repo := storetest.NewMemory()
	repo.Seed(&domain.User{PlatformID: "owner-1", Name: "pedro", OwnedCreatures: []int{1, 2, 3, 4, 5}})

	c := testCreature(t, fake, repo, &stubIndex{}, []int{1, 2, 3, 4, 5})
	if err := c.Execute(context.Background(), invocation("!creature"), nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(fake.LastContent(), "already has an owner") {
		t.Errorf("Expected the all-owned reply, got %q", fake.LastContent())
	}
}

func TestCreatureRejectsArguments(t *testing.T) {
	c := testCreature(t, platformtest.NewFake(), storetest.NewMemory(), &stubIndex{}, []int{1})
	if _, err := c.Parse([]string{"!creature", "extra"}); err == nil {
		t.Error("Expected extra tokens rejected")
	}
}
