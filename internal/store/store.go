// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/joaoseidel/k9/internal/domain"
)

// Repository persists user records. Writes rewrite the full mutable-field
// set, so callers read-modify-write complete records; concurrent writers to
// the same user from different lanes are last-writer-wins.
type Repository interface {
	// FindByPlatformID retrieves a user by platform id. Returns (nil, nil)
	// when no record exists.
	FindByPlatformID(ctx context.Context, platformID string) (*domain.User, error)

	// Insert creates a record, assigning the internal identity.
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)

	// Upsert rewrites a record keyed on the internal identity.
	Upsert(ctx context.Context, user *domain.User) error

	// Observe returns the record for a platform user, creating it lazily on
	// first sight and refreshing the display name when it changed.
	Observe(ctx context.Context, platformID, name string) (*domain.User, error)

	// ListWithAttribute returns every user holding the attribute, sorted by
	// magnitude descending, latest roll timestamp descending.
	ListWithAttribute(ctx context.Context) ([]*domain.User, error)

	// ListRanked pages through ListWithAttribute's ordering. page is
	// zero-based.
	ListRanked(ctx context.Context, page, pageSize int) ([]*domain.User, error)

	// CountWithAttribute counts users holding the attribute.
	CountWithAttribute(ctx context.Context) (int64, error)

	// ListWinners returns users with at least one win, sorted by win count
	// descending.
	ListWinners(ctx context.Context) ([]*domain.User, error)

	// FindCreatureOwner returns the user owning the creature, or (nil, nil).
	FindCreatureOwner(ctx context.Context, creatureID int) (*domain.User, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
