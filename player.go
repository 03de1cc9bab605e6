package main

import (
	"strconv"
	"time"

	"starfield/server/internal/store"
)

// Player is the broadcast-facing view of a ship. ID here is the numeric
// display identity rendered as a string; the persistent auth identity and the
// connection id never appear on the wire.
type Player struct {
	ID        string  `json:"id"`
	Nickname  string  `json:"nickname,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
	Shield    float64 `json:"shield"`
	MaxShield float64 `json:"maxShield"`
	Dead      bool    `json:"dead,omitempty"`
}

// playerState is the authoritative in-memory state for a joined player within
// one map. Created on a successful join, mutated only by validated inbound
// messages and the tick loop, removed on disconnect or map transfer.
type playerState struct {
	Player

	// Identity. Three identifiers, never conflated: authID keys durable
	// storage, displayID is the numeric leaderboard identity, connID routes
	// to the live socket.
	authID    string
	displayID int64
	connID    string

	velocityX float64
	velocityY float64

	credits       int64
	cosmos        int64
	experience    int64
	honor         int64
	upgrades      string
	questProgress string

	combatTarget  string // NPC id, empty when out of combat
	lastHeartbeat time.Time

	sub *subscriber
}

func newPlayerState(connID string, rec *store.PlayerRecord, sub *subscriber, now time.Time) *playerState {
	return &playerState{
		Player: Player{
			ID:        strconv.FormatInt(rec.DisplayID, 10),
			Nickname:  rec.Nickname,
			X:         rec.X,
			Y:         rec.Y,
			Rotation:  rec.Rotation,
			Health:    rec.Health,
			MaxHealth: rec.MaxHealth,
			Shield:    rec.Shield,
			MaxShield: rec.MaxShield,
		},
		authID:        rec.AuthID,
		displayID:     rec.DisplayID,
		connID:        connID,
		credits:       rec.Credits,
		cosmos:        rec.Cosmos,
		experience:    rec.Experience,
		honor:         rec.Honor,
		upgrades:      rec.Upgrades,
		questProgress: rec.QuestProgress,
		lastHeartbeat: now,
		sub:           sub,
	}
}

func (s *playerState) snapshot() Player {
	return s.Player
}

// record converts the live state back into its durable form for saving.
func (s *playerState) record(mapID string) *store.PlayerRecord {
	return &store.PlayerRecord{
		AuthID:        s.authID,
		DisplayID:     s.displayID,
		Nickname:      s.Nickname,
		MapID:         mapID,
		X:             s.X,
		Y:             s.Y,
		Rotation:      s.Rotation,
		Health:        s.Health,
		MaxHealth:     s.MaxHealth,
		Shield:        s.Shield,
		MaxShield:     s.MaxShield,
		Credits:       s.credits,
		Cosmos:        s.cosmos,
		Experience:    s.experience,
		Honor:         s.honor,
		Upgrades:      s.upgrades,
		QuestProgress: s.questProgress,
	}
}

// applyDamage reduces shield first, then health, and sets the death flag when
// health reaches zero. Returns true when this damage killed the player.
func (s *playerState) applyDamage(amount float64) bool {
	if s.Dead || amount <= 0 {
		return false
	}
	if s.Shield > 0 {
		absorbed := min(s.Shield, amount)
		s.Shield -= absorbed
		amount -= absorbed
	}
	s.Health -= amount
	if s.Health <= 0 {
		s.Health = 0
		s.Dead = true
		return true
	}
	return false
}
