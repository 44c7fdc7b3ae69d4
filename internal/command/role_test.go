package command

import (
	"context"
	"strings"
	"testing"

	"github.com/joaoseidel/k9/internal/platform/platformtest"
	"github.com/joaoseidel/k9/internal/store/storetest"
)

func TestRoleParse(t *testing.T) {
	c := NewRoleCustom(platformtest.NewFake(), storetest.NewMemory())

	tests := []struct {
		name    string
		tokens  []string
		want    RoleArgs
		wantErr bool
	}{
		{"name only", []string{"!role", "Night", "Owl"}, RoleArgs{RoleName: "Night Owl"}, false},
		{"name and color", []string{"!role", "Night", "Owl", "#ff0080"},
			RoleArgs{RoleName: "Night Owl", Color: 0xFF0080, HasColor: true}, false},
		{"broken hex ignored", []string{"!role", "Night", "Owl", "#zzz"},
			RoleArgs{RoleName: "Night Owl"}, false},
		{"color without name", []string{"!role", "#ff0080"}, RoleArgs{}, true},
		{"no arguments", []string{"!role"}, RoleArgs{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Parse(tt.tokens)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.(RoleArgs) != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestRoleCreateThenUpdate(t *testing.T) {
	fake := platformtest.NewFake()
	repo := storetest.NewMemory()
	c := NewRoleCustom(fake, repo)

	err := c.Execute(context.Background(), invocation("!role Night Owl"),
		RoleArgs{RoleName: "Night Owl"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	user, _ := repo.FindByPlatformID(context.Background(), "u1")
	if user.PersonalRole == nil || user.PersonalRole.Name != "Night Owl" {
		t.Fatalf("Expected the role triple stored, got %+v", user.PersonalRole)
	}
	if user.PersonalRole.Color != defaultRoleColor {
		t.Errorf("Expected the default color, got %#x", user.PersonalRole.Color)
	}
	if fake.TopRole() != user.PersonalRole.ID {
		t.Errorf("Expected the role moved to the top, got %q", fake.TopRole())
	}
	if !strings.Contains(fake.LastContent(), "created successfully") {
		t.Errorf("Expected the created reply, got %q", fake.LastContent())
	}

	firstID := user.PersonalRole.ID
	err = c.Execute(context.Background(), invocation("!role Early Bird #00ff00"),
		RoleArgs{RoleName: "Early Bird", Color: 0x00FF00, HasColor: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	user, _ = repo.FindByPlatformID(context.Background(), "u1")
	if user.PersonalRole.ID != firstID {
		t.Errorf("Expected the same role edited, got %q", user.PersonalRole.ID)
	}
	if user.PersonalRole.Name != "Early Bird" || user.PersonalRole.Color != 0x00FF00 {
		t.Errorf("Expected the restyled triple, got %+v", user.PersonalRole)
	}
	if !strings.Contains(fake.LastContent(), "updated successfully") {
		t.Errorf("Expected the updated reply, got %q", fake.LastContent())
	}
}

func TestRoleKeepsStoredColorWithoutNewOne(t *testing.T) {
	fake := platformtest.NewFake()
	repo := storetest.NewMemory()
	c := NewRoleCustom(fake, repo)

	err := c.Execute(context.Background(), invocation("!role Night Owl #123456"),
		RoleArgs{RoleName: "Night Owl", Color: 0x123456, HasColor: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	err = c.Execute(context.Background(), invocation("!role Early Bird"),
		RoleArgs{RoleName: "Early Bird"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	user, _ := repo.FindByPlatformID(context.Background(), "u1")
	if user.PersonalRole.Color != 0x123456 {
		t.Errorf("Expected the stored color kept, got %#x", user.PersonalRole.Color)
	}
}
