package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joaoseidel/k9/internal/domain"
	"github.com/joaoseidel/k9/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		platform_id TEXT NOT NULL UNIQUE,
		name TEXT,
		personal_role_json TEXT,
		attr_role_json TEXT,
		attr_size INTEGER,
		attr_rolled_at INTEGER,
		win_count INTEGER NOT NULL DEFAULT 0,
		creatures_json TEXT NOT NULL DEFAULT '[]',
		capture_cooldown_until INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_attr
		ON users(attr_size DESC, attr_rolled_at DESC) WHERE attr_size IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_users_wins
		ON users(win_count DESC) WHERE win_count > 0;
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const userColumns = `id, platform_id, name, personal_role_json, attr_role_json,
	attr_size, attr_rolled_at, win_count, creatures_json,
	capture_cooldown_until, created_at, updated_at`

// FindByPlatformID retrieves a user by platform id.
func (s *SQLiteStore) FindByPlatformID(ctx context.Context, platformID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE platform_id = ?`, platformID)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// Insert creates a record, assigning the internal identity.
func (s *SQLiteStore) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := time.Now()
	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	query := `
	INSERT INTO users (` + userColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args, err := userArgs(&stored)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &stored, nil
}

// Upsert rewrites the full mutable-field set keyed on the internal identity.
func (s *SQLiteStore) Upsert(ctx context.Context, user *domain.User) error {
	stored := *user
	stored.UpdatedAt = time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}

	query := `
	INSERT INTO users (` + userColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		personal_role_json = excluded.personal_role_json,
		attr_role_json = excluded.attr_role_json,
		attr_size = excluded.attr_size,
		attr_rolled_at = excluded.attr_rolled_at,
		win_count = excluded.win_count,
		creatures_json = excluded.creatures_json,
		capture_cooldown_until = excluded.capture_cooldown_until,
		updated_at = excluded.updated_at`

	args, err := userArgs(&stored)
	if err != nil {
		return err
	}
	return s.execWithRetry(ctx, query, args...)
}

// Observe returns the record for a platform user, creating it on first sight
// and refreshing the display name.
func (s *SQLiteStore) Observe(ctx context.Context, platformID, name string) (*domain.User, error) {
	user, err := s.FindByPlatformID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return s.Insert(ctx, &domain.User{PlatformID: platformID, Name: name})
	}
	if name != "" && user.Name != name {
		user.Name = name
		if err := s.Upsert(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// ListWithAttribute returns attribute holders, biggest first, most recent
// roll winning ties.
func (s *SQLiteStore) ListWithAttribute(ctx context.Context) ([]*domain.User, error) {
	return s.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE attr_size IS NOT NULL
		ORDER BY attr_size DESC, attr_rolled_at DESC`)
}

// ListRanked pages through the attribute ordering.
func (s *SQLiteStore) ListRanked(ctx context.Context, page, pageSize int) ([]*domain.User, error) {
	return s.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE attr_size IS NOT NULL
		ORDER BY attr_size DESC, attr_rolled_at DESC
		LIMIT ? OFFSET ?`, pageSize, page*pageSize)
}

// CountWithAttribute counts attribute holders.
func (s *SQLiteStore) CountWithAttribute(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE attr_size IS NOT NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attribute holders: %w", err)
	}
	return count, nil
}

// ListWinners returns users with wins, most wins first.
func (s *SQLiteStore) ListWinners(ctx context.Context) ([]*domain.User, error) {
	return s.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE win_count > 0
		ORDER BY win_count DESC`)
}

// FindCreatureOwner returns the user owning the creature, if any.
func (s *SQLiteStore) FindCreatureOwner(ctx context.Context, creatureID int) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE EXISTS (
			SELECT 1 FROM json_each(users.creatures_json)
			WHERE json_each.value = ?
		)
		LIMIT 1`, creatureID)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan creature owner: %w", err)
	}
	return user, nil
}

// execWithRetry retries SQLITE_BUSY conflicts with exponential backoff.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) error {
	const maxRetries = 3
	delay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("write user record: %w", err)
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func userArgs(u *domain.User) ([]any, error) {
	personalRole, err := marshalNullable(u.PersonalRole)
	if err != nil {
		return nil, fmt.Errorf("encode personal role: %w", err)
	}

	var attrRole any
	var attrSize, attrRolledAt any
	if u.AttributeSize != nil {
		encoded, err := json.Marshal(u.AttributeSize.Role)
		if err != nil {
			return nil, fmt.Errorf("encode attribute role: %w", err)
		}
		attrRole = string(encoded)
		attrSize = u.AttributeSize.Size
		attrRolledAt = u.AttributeSize.RolledAt.Unix()
	}

	creatures := u.OwnedCreatures
	if creatures == nil {
		creatures = []int{}
	}
	creaturesJSON, err := json.Marshal(creatures)
	if err != nil {
		return nil, fmt.Errorf("encode creatures: %w", err)
	}

	var cooldown any
	if u.CaptureCooldownUntil != nil {
		cooldown = u.CaptureCooldownUntil.Unix()
	}

	return []any{
		u.ID, u.PlatformID, u.Name, personalRole, attrRole,
		attrSize, attrRolledAt, u.WinCount, string(creaturesJSON),
		cooldown, u.CreatedAt.Unix(), u.UpdatedAt.Unix(),
	}, nil
}

func marshalNullable(role *domain.Role) (any, error) {
	if role == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(role)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user                       domain.User
		name                       sql.NullString
		personalRoleJSON           sql.NullString
		attrRoleJSON               sql.NullString
		attrSize, attrRolledAt     sql.NullInt64
		creaturesJSON              string
		cooldown                   sql.NullInt64
		createdAtUnix, updatedAtTs int64
	)

	err := row.Scan(
		&user.ID, &user.PlatformID, &name, &personalRoleJSON, &attrRoleJSON,
		&attrSize, &attrRolledAt, &user.WinCount, &creaturesJSON,
		&cooldown, &createdAtUnix, &updatedAtTs,
	)
	if err != nil {
		return nil, err
	}

	user.Name = name.String

	if personalRoleJSON.Valid {
		var role domain.Role
		if err := json.Unmarshal([]byte(personalRoleJSON.String), &role); err != nil {
			return nil, fmt.Errorf("decode personal role: %w", err)
		}
		user.PersonalRole = &role
	}

	if attrRoleJSON.Valid && attrSize.Valid && attrRolledAt.Valid {
		var role domain.Role
		if err := json.Unmarshal([]byte(attrRoleJSON.String), &role); err != nil {
			return nil, fmt.Errorf("decode attribute role: %w", err)
		}
		user.AttributeSize = &domain.AttributeSize{
			Role:     role,
			Size:     int(attrSize.Int64),
			RolledAt: time.Unix(attrRolledAt.Int64, 0),
		}
	}

	if err := json.Unmarshal([]byte(creaturesJSON), &user.OwnedCreatures); err != nil {
		return nil, fmt.Errorf("decode creatures: %w", err)
	}

	if cooldown.Valid {
		t := time.Unix(cooldown.Int64, 0)
		user.CaptureCooldownUntil = &t
	}

	user.CreatedAt = time.Unix(createdAtUnix, 0)
	user.UpdatedAt = time.Unix(updatedAtTs, 0)
	return &user, nil
}
