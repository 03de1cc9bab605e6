package main

import "time"

const (
	ProtocolVersion   = 1
	writeWait         = 10 * time.Second
	maxMessageBytes   = 1 << 16
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	// A connection that keeps sending unparseable frames is protocol-fatal
	// after this many in a row.
	maxMalformedFrames = 8

	// Throttled diagnostics: at most this many log lines per window, per
	// category (validation and security throttle independently).
	diagnosticLogBudget = 10
	diagnosticLogWindow = 5 * time.Second

	defaultMapID = "map-1"

	npcAggroRadius     = 800.0
	npcAttackRange     = 250.0
	npcDisengageRadius = 1400.0
	npcFleeHealthFrac  = 0.15
	npcCruiseSpeed     = 120.0
	npcAggroSpeed      = 260.0
	npcFleeSpeed       = 320.0
	npcWanderRadius    = 1200.0
	npcArriveRadius    = 60.0
	npcRespawnDelay    = 15 * time.Second
	projectileDamage   = 40.0

	nearBroadcastRadius = 2000.0
)
