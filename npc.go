package main

import "time"

// NPC is the broadcast-facing view of a simulated entity.
type NPC struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
	Shield    float64 `json:"shield"`
	Behavior  string  `json:"behavior"`
}

type npcBehavior uint8

const (
	behaviorCruise npcBehavior = iota
	behaviorAggressive
	behaviorFlee
)

func (b npcBehavior) String() string {
	switch b {
	case behaviorAggressive:
		return "aggressive"
	case behaviorFlee:
		return "flee"
	default:
		return "cruise"
	}
}

type npcState struct {
	ID        string
	Type      string
	X, Y      float64
	VelX      float64
	VelY      float64
	Health    float64
	MaxHealth float64
	Shield    float64
	Behavior  npcBehavior

	// targetID is a weak reference to a player's connection id, never an
	// ownership link; a vanished target just drops the NPC back to cruise.
	targetID string

	// Wander bookkeeping for cruise behavior.
	wanderX        float64
	wanderY        float64
	nextWanderTick uint64

	// Last position that passed the finite-guard, used to reset the NPC
	// instead of propagating a NaN through the registry.
	lastGoodX float64
	lastGoodY float64

	// Last broadcast position, for the significant-movement check.
	lastSentX float64
	lastSentY float64
	dirty     bool
}

func (s *npcState) snapshot() NPC {
	return NPC{
		ID:        s.ID,
		Type:      s.Type,
		X:         s.X,
		Y:         s.Y,
		Rotation:  headingOf(s.VelX, s.VelY),
		Health:    s.Health,
		MaxHealth: s.MaxHealth,
		Shield:    s.Shield,
		Behavior:  s.Behavior.String(),
	}
}

func (s *npcState) healthFraction() float64 {
	if s.MaxHealth <= 0 {
		return 0
	}
	return s.Health / s.MaxHealth
}

// respawnEntry schedules a replacement for a dead NPC. Respawn is a separate
// concern from removal: the dead entity leaves the registry immediately, the
// entry fires later from the tick loop.
type respawnEntry struct {
	npcType string
	at      time.Time
}
