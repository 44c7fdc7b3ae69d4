package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/joaoseidel/k9/internal/domain"
	"github.com/joaoseidel/k9/internal/platform/platformtest"
	"github.com/joaoseidel/k9/internal/store/storetest"
)

func seedRanked(repo *storetest.Memory, sizes map[string]int) {
	at := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for id, size := range sizes {
		repo.Seed(&domain.User{
			PlatformID:    id,
			Name:          id,
			AttributeSize: &domain.AttributeSize{Size: size, RolledAt: at},
		})
	}
}

func TestRankFirstPage(t *testing.T) {
	fake := platformtest.NewFake()
	repo := storetest.NewMemory()
	seedRanked(repo, map[string]int{"a": 24, "b": 10, "c": -3})

	r := NewRank(fake, repo)
	if err := r.Execute(context.Background(), invocation("!rank"), RankArgs{Page: 0}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := fake.LastContent()
	lines := strings.Split(got, "\n")
	if lines[0] != "**Top sizes of the server**:" {
		t.Errorf("Unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], ":first_place:") || !strings.Contains(lines[1], "<@a> with 24cm") {
		t.Errorf("Expected the biggest holder first with a medal, got %q", lines[1])
	}
	if !strings.Contains(lines[3], ":third_place:") || !strings.Contains(lines[3], "-3cm") {
		t.Errorf("Expected the third holder with a medal, got %q", lines[3])
	}
	if !strings.Contains(got, "**Page [1 of 1]**") {
		t.Errorf("Expected the page footer, got %q", got)
	}
}

func TestRankLaterPageUsesNumericMarkers(t *testing.T) {
	fake := platformtest.NewFake()
	repo := storetest.NewMemory()
	sizes := make(map[string]int)
	for i := 0; i < 12; i++ {
		sizes[string(rune('a'+i))] = 24 - i
	}
	seedRanked(repo, sizes)

	r := NewRank(fake, repo)
	if err := r.Execute(context.Background(), invocation("!rank 2"), RankArgs{Page: 1}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := fake.LastContent()
	if !strings.Contains(got, "11. ") || !strings.Contains(got, "12. ") {
		t.Errorf("Expected numeric markers for ranks 11 and 12, got %q", got)
	}
	if !strings.Contains(got, "**Page [2 of 2]**") {
		t.Errorf("Expected the page footer, got %q", got)
	}
}
