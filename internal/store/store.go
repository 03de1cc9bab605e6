// Package store defines the persistence contract the sync core calls out to.
// Records loaded from a store are trusted server data and are not re-run
// through input validation. Save failures are tolerated by callers: the live
// simulation's removal guarantees never wait on a write.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record exists for an authentication identity.
var ErrNotFound = errors.New("player record not found")

// PlayerRecord is the durable state of one player, keyed by the persistent
// authentication identity (never the connection id).
type PlayerRecord struct {
	AuthID        string
	DisplayID     int64
	Nickname      string
	MapID         string
	X             float64
	Y             float64
	Rotation      float64
	Health        float64
	MaxHealth     float64
	Shield        float64
	MaxShield     float64
	Credits       int64
	Cosmos        int64
	Experience    int64
	Honor         int64
	Upgrades      string // serialized upgrade summary, opaque to the core
	QuestProgress string // serialized quest state, opaque to the core
}

// LeaderboardEntry is one row of the ranking snapshot.
type LeaderboardEntry struct {
	DisplayID  int64
	Nickname   string
	Experience int64
	Honor      int64
}

// PlayerStore is the narrow save/load contract between the sync core and
// whatever persistence backs it.
type PlayerStore interface {
	Load(ctx context.Context, authID string) (*PlayerRecord, error)
	Save(ctx context.Context, rec *PlayerRecord) error
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	Close() error
}
