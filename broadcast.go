package main

import (
	"encoding/json"
	"math"
)

// Fan-out helpers. All of them iterate this map's registry only, and a send
// failure on one socket is logged without aborting delivery to the rest; the
// reader loop owns actual disconnect handling.

// broadcastToMap sends message to every connected player on this map except
// excludeID (pass "" to include everyone).
func (m *MapServer) broadcastToMap(message any, excludeID string) {
	m.broadcastFiltered(message, func(p *playerState) bool {
		return p.connID != excludeID && p.Player.ID != excludeID
	})
}

// broadcastNear sends message only to players within radius of (x, y). This
// is a bandwidth optimization, not a security boundary: distant players just
// have no use for the update.
func (m *MapServer) broadcastNear(x, y, radius float64, message any, excludeID string) {
	m.broadcastFiltered(message, func(p *playerState) bool {
		if p.connID == excludeID || p.Player.ID == excludeID {
			return false
		}
		return math.Hypot(p.X-x, p.Y-y) <= radius
	})
}

// broadcastNpcUpdates flushes the NPCs whose movement since the last
// broadcast exceeded the significance epsilon.
func (m *MapServer) broadcastNpcUpdates() {
	m.mu.Lock()
	updates := make([]NPC, 0)
	for _, npc := range m.npcs {
		if !npc.dirty {
			continue
		}
		npc.dirty = false
		npc.lastSentX, npc.lastSentY = npc.X, npc.Y
		updates = append(updates, npc.snapshot())
	}
	m.mu.Unlock()

	if len(updates) == 0 {
		return
	}
	m.broadcastToMap(npcUpdateMessage{Type: msgTypeNPCUpdate, NPCs: updates}, "")
}

func (m *MapServer) broadcastFiltered(message any, include func(*playerState) bool) {
	data, err := json.Marshal(message)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	m.mu.Lock()
	targets := make([]*subscriber, 0, len(m.players))
	ids := make([]string, 0, len(m.players))
	for _, p := range m.players {
		if p.sub == nil || !include(p) {
			continue
		}
		targets = append(targets, p.sub)
		ids = append(ids, p.Player.ID)
	}
	m.mu.Unlock()

	for i, sub := range targets {
		if err := sub.send(data); err != nil {
			m.log.Warn().Err(err).Str("player", ids[i]).Msg("broadcast send failed")
		}
	}
}
