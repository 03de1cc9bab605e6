package main

import (
	"math"
)

// Behavior tuning mirrors the production server: cruise entities wander,
// aggressive ones close distance while staying inside attack range, fleeing
// ones open distance from the threat until they are safe or healthy again.

// runNpcBehavior recomputes one NPC's behavior from live player positions and
// sets its velocity for this tick. Caller holds the map lock; nothing here
// may suspend mid-mutation.
func (m *MapServer) runNpcBehavior(npc *npcState, tick uint64) {
	threatID, threatDist := m.nearestPlayerLocked(npc.X, npc.Y)

	switch {
	case threatID != "" && npc.healthFraction() < npcFleeHealthFrac && threatDist < npcDisengageRadius:
		npc.Behavior = behaviorFlee
		npc.targetID = threatID
	case threatID != "" && threatDist < npcAggroRadius:
		npc.Behavior = behaviorAggressive
		npc.targetID = threatID
	case npc.Behavior != behaviorCruise && (threatID == "" || threatDist > npcDisengageRadius):
		npc.Behavior = behaviorCruise
		npc.targetID = ""
	}

	// A target that left the map drops the NPC back to cruise.
	target := m.players[npc.targetID]
	if target == nil && npc.Behavior != behaviorCruise {
		npc.Behavior = behaviorCruise
		npc.targetID = ""
	}

	switch npc.Behavior {
	case behaviorAggressive:
		dx, dy := target.X-npc.X, target.Y-npc.Y
		dist := math.Hypot(dx, dy)
		if dist <= npcAttackRange {
			npc.VelX, npc.VelY = 0, 0
			return
		}
		dirX, dirY := normalizeVector(dx, dy)
		npc.VelX = dirX * npcAggroSpeed
		npc.VelY = dirY * npcAggroSpeed

	case behaviorFlee:
		dirX, dirY := normalizeVector(npc.X-target.X, npc.Y-target.Y)
		if dirX == 0 && dirY == 0 {
			dirX, dirY = m.randomUnitVector()
		}
		npc.VelX = dirX * npcFleeSpeed
		npc.VelY = dirY * npcFleeSpeed

	default:
		m.cruise(npc, tick)
	}
}

// cruise wanders toward a periodically re-rolled target within bounds.
func (m *MapServer) cruise(npc *npcState, tick uint64) {
	arrived := math.Hypot(npc.wanderX-npc.X, npc.wanderY-npc.Y) < npcArriveRadius
	if npc.nextWanderTick <= tick || arrived {
		bound := m.cfg.WorldBound
		npc.wanderX = clampFloat(npc.X+(m.rng.Float64()*2-1)*npcWanderRadius, -bound, bound)
		npc.wanderY = clampFloat(npc.Y+(m.rng.Float64()*2-1)*npcWanderRadius, -bound, bound)
		npc.nextWanderTick = tick + 30 + uint64(m.rng.Intn(60))
	}

	dirX, dirY := normalizeVector(npc.wanderX-npc.X, npc.wanderY-npc.Y)
	npc.VelX = dirX * npcCruiseSpeed
	npc.VelY = dirY * npcCruiseSpeed
}

// integrateNpc advances position by velocity × dt with a finite-guard, then
// reflects velocity at the world edges so motion stays continuous. It marks
// the NPC dirty only when the change since the last broadcast exceeds the
// configured epsilon.
func (m *MapServer) integrateNpc(npc *npcState, dt float64) {
	newX := npc.X + npc.VelX*dt
	newY := npc.Y + npc.VelY*dt

	if !finite(newX) || !finite(newY) {
		// A corrupted intermediate never reaches the registry: snap back to
		// the last known-good position and stop.
		npc.X, npc.Y = npc.lastGoodX, npc.lastGoodY
		npc.VelX, npc.VelY = 0, 0
		return
	}

	bound := m.cfg.WorldBound
	if newX < -bound {
		newX = -bound
		npc.VelX = -npc.VelX
	} else if newX > bound {
		newX = bound
		npc.VelX = -npc.VelX
	}
	if newY < -bound {
		newY = -bound
		npc.VelY = -npc.VelY
	} else if newY > bound {
		newY = bound
		npc.VelY = -npc.VelY
	}

	npc.X, npc.Y = newX, newY
	npc.lastGoodX, npc.lastGoodY = newX, newY

	if math.Hypot(newX-npc.lastSentX, newY-npc.lastSentY) > m.cfg.BroadcastEpsilon {
		npc.dirty = true
	}
}

// nearestPlayerLocked returns the closest living player and its distance.
func (m *MapServer) nearestPlayerLocked(x, y float64) (string, float64) {
	bestID := ""
	bestDist := math.MaxFloat64
	for id, p := range m.players {
		if p.Dead {
			continue
		}
		d := math.Hypot(p.X-x, p.Y-y)
		if d < bestDist {
			bestID = id
			bestDist = d
		}
	}
	return bestID, bestDist
}

func (m *MapServer) randomUnitVector() (float64, float64) {
	angle := m.rng.Float64() * 2 * math.Pi
	return math.Cos(angle), math.Sin(angle)
}

func normalizeVector(dx, dy float64) (float64, float64) {
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 0, 0
	}
	return dx / length, dy / length
}

func headingOf(velX, velY float64) float64 {
	if velX == 0 && velY == 0 {
		return 0
	}
	return math.Atan2(velY, velX)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
