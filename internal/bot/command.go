package bot

import (
	"context"

	"github.com/joaoseidel/k9/internal/platform"
)

// Invocation carries the per-invocation context the dispatcher hands to a
// command immediately before Execute.
type Invocation struct {
	Message *platform.Message
}

// Command is a named, self-describing unit of work. Matches must be pure and
// never fail; Parse validates the whitespace-split tokens and returns a
// command-specific argument value; Execute performs the side effects.
//
// Commands are stateless with respect to routing: collaborator dependencies
// are injected at construction and everything per-invocation arrives through
// the Invocation and the parsed arguments.
type Command interface {
	Name() string
	Description() string
	Help() string
	Matches(input string) bool
	Parse(tokens []string) (any, error)
	Execute(ctx context.Context, inv *Invocation, args any) error
}
