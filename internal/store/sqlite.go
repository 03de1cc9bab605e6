package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements PlayerStore on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
	auth_id        TEXT PRIMARY KEY,
	display_id     INTEGER NOT NULL,
	nickname       TEXT NOT NULL DEFAULT '',
	map_id         TEXT NOT NULL DEFAULT 'map-1',
	x              REAL NOT NULL DEFAULT 0,
	y              REAL NOT NULL DEFAULT 0,
	rotation       REAL NOT NULL DEFAULT 0,
	health         REAL NOT NULL DEFAULT 100,
	max_health     REAL NOT NULL DEFAULT 100,
	shield         REAL NOT NULL DEFAULT 0,
	max_shield     REAL NOT NULL DEFAULT 0,
	credits        INTEGER NOT NULL DEFAULT 0,
	cosmos         INTEGER NOT NULL DEFAULT 0,
	experience     INTEGER NOT NULL DEFAULT 0,
	honor          INTEGER NOT NULL DEFAULT 0,
	upgrades       TEXT NOT NULL DEFAULT '',
	quest_progress TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_players_experience ON players (experience DESC);
`

// NewSQLite opens (and if needed initializes) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load fetches the record for authID, or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, authID string) (*PlayerRecord, error) {
	query := `
		SELECT auth_id, display_id, nickname, map_id, x, y, rotation,
		       health, max_health, shield, max_shield,
		       credits, cosmos, experience, honor, upgrades, quest_progress
		FROM players WHERE auth_id = ?
	`
	rec := &PlayerRecord{}
	err := s.db.QueryRowContext(ctx, query, authID).Scan(
		&rec.AuthID, &rec.DisplayID, &rec.Nickname, &rec.MapID,
		&rec.X, &rec.Y, &rec.Rotation,
		&rec.Health, &rec.MaxHealth, &rec.Shield, &rec.MaxShield,
		&rec.Credits, &rec.Cosmos, &rec.Experience, &rec.Honor,
		&rec.Upgrades, &rec.QuestProgress,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", authID, err)
	}
	return rec, nil
}

// Save upserts the record keyed by its authentication identity.
func (s *SQLiteStore) Save(ctx context.Context, rec *PlayerRecord) error {
	query := `
		INSERT INTO players (
			auth_id, display_id, nickname, map_id, x, y, rotation,
			health, max_health, shield, max_shield,
			credits, cosmos, experience, honor, upgrades, quest_progress
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(auth_id) DO UPDATE SET
			display_id = excluded.display_id,
			nickname = excluded.nickname,
			map_id = excluded.map_id,
			x = excluded.x,
			y = excluded.y,
			rotation = excluded.rotation,
			health = excluded.health,
			max_health = excluded.max_health,
			shield = excluded.shield,
			max_shield = excluded.max_shield,
			credits = excluded.credits,
			cosmos = excluded.cosmos,
			experience = excluded.experience,
			honor = excluded.honor,
			upgrades = excluded.upgrades,
			quest_progress = excluded.quest_progress
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.AuthID, rec.DisplayID, rec.Nickname, rec.MapID,
		rec.X, rec.Y, rec.Rotation,
		rec.Health, rec.MaxHealth, rec.Shield, rec.MaxShield,
		rec.Credits, rec.Cosmos, rec.Experience, rec.Honor,
		rec.Upgrades, rec.QuestProgress,
	)
	if err != nil {
		return fmt.Errorf("save player %s: %w", rec.AuthID, err)
	}
	return nil
}

// Leaderboard returns the top players by experience.
func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT display_id, nickname, experience, honor
		FROM players ORDER BY experience DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.DisplayID, &e.Nickname, &e.Experience, &e.Honor); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
