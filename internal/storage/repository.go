package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a guarded write lost against a
	// concurrent one
	ErrConflict = errors.New("conflict")
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Repository handles all database operations
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository with SQLite
func NewRepository(dbPath string) (*Repository, error) {
	if dbPath != MemoryPath {
		// Ensure directory exists
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite takes one writer at a time; a single connection also keeps
	// an in-memory database alive for the repository's lifetime
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the database schema
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS servers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			uid TEXT PRIMARY KEY,
			last_known_nickname TEXT NOT NULL DEFAULT '',
			server_id TEXT NOT NULL DEFAULT '',
			channel_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cooldowns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_uid TEXT NOT NULL REFERENCES profiles(uid) ON DELETE CASCADE,
			type TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			notified INTEGER NOT NULL DEFAULT 0,
			UNIQUE(profile_uid, type)
		)`,
		`CREATE TABLE IF NOT EXISTS guild_cooldowns (
			server_id TEXT PRIMARY KEY,
			set_by_uid TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			notified INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS group_activities (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			owner_uid TEXT NOT NULL REFERENCES profiles(uid) ON DELETE CASCADE,
			owner_name TEXT NOT NULL,
			server_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			version TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_activity_members (
			activity_id TEXT NOT NULL REFERENCES group_activities(id) ON DELETE CASCADE,
			uid TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY(activity_id, uid)
		)`,
		`CREATE TABLE IF NOT EXISTS hunts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_uid TEXT NOT NULL REFERENCES profiles(uid) ON DELETE CASCADE,
			target TEXT,
			money INTEGER NOT NULL DEFAULT 0,
			xp INTEGER NOT NULL DEFAULT 0,
			loot TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			completed_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS gambles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_uid TEXT NOT NULL REFERENCES profiles(uid) ON DELETE CASCADE,
			message_id TEXT UNIQUE,
			game TEXT NOT NULL,
			outcome TEXT NOT NULL,
			amount INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS guild_members (
			guild_name TEXT NOT NULL,
			uid TEXT NOT NULL,
			PRIMARY KEY(guild_name, uid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cooldowns_due ON cooldowns(notified, expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_group_activities_owner ON group_activities(owner_uid, type, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_hunts_open ON hunts(profile_uid, target)`,
		`CREATE INDEX IF NOT EXISTS idx_guild_members_uid ON guild_members(uid)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// withTx runs fn in a transaction, committing when it returns nil
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Server operations

// UpsertServer records a server, keeping its active flag when it exists
func (r *Repository) UpsertServer(ctx context.Context, s *Server) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO servers (id, name, active, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		s.ID, s.Name, s.Active, toMillis(time.Now()),
	)
	return err
}

// GetServer retrieves a server by id
func (r *Repository) GetServer(ctx context.Context, id string) (*Server, error) {
	s := &Server{}
	var created int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, active, created_at FROM servers WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Name, &s.Active, &created)
	if err != nil {
		return nil, notFound(err)
	}
	s.CreatedAt = fromMillis(created)
	return s, nil
}

// SetServerActive toggles message processing for a server
func (r *Repository) SetServerActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE servers SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Profile operations

// GetOrCreateProfile returns the profile for p.UID, creating it from p
// when missing. created reports whether a row was inserted.
func (r *Repository) GetOrCreateProfile(ctx context.Context, p Profile) (profile *Profile, created bool, err error) {
	now := toMillis(time.Now())
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (uid, last_known_nickname, server_id, channel_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(uid) DO NOTHING`,
		p.UID, p.LastKnownNickname, p.ServerID, p.ChannelID, now, now,
	)
	if err != nil {
		return nil, false, err
	}
	n, _ := res.RowsAffected()

	profile, err = r.GetProfile(ctx, p.UID)
	if err != nil {
		return nil, false, err
	}
	return profile, n > 0, nil
}

// GetProfile finds a profile by user id
func (r *Repository) GetProfile(ctx context.Context, uid string) (*Profile, error) {
	p := &Profile{}
	var created, updated int64
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, last_known_nickname, server_id, channel_id, created_at, updated_at FROM profiles WHERE uid = ?`,
		uid,
	).Scan(&p.UID, &p.LastKnownNickname, &p.ServerID, &p.ChannelID, &created, &updated)
	if err != nil {
		return nil, notFound(err)
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

// UpdateProfileLocation moves a profile to the server and channel it was
// last seen in
func (r *Repository) UpdateProfileLocation(ctx context.Context, uid, serverID, channelID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET server_id = ?, channel_id = ?, updated_at = ? WHERE uid = ?`,
		serverID, channelID, toMillis(time.Now()), uid,
	)
	return err
}
