package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"starfield/server/internal/anticheat"
	"starfield/server/internal/coalesce"
	"starfield/server/internal/config"
	"starfield/server/internal/rewards"
	"starfield/server/internal/store"
)

var errMapFull = errors.New("map at capacity")

// moveUpdate is one pending, already-validated position update. The coalescing
// queue keeps only the newest per player between ticks, which is the server's
// backpressure valve against update floods.
type moveUpdate struct {
	X, Y        float64
	Rotation    float64
	HasRotation bool
	VelX, VelY  float64
	Pet         *PetPos
}

// MapServer owns one authoritative simulation partition: its player registry,
// NPC registry, and pending position updates. A player id exists in at most
// one MapServer's registry at any time.
type MapServer struct {
	id    string
	cfg   config.Config
	log   *zerolog.Logger
	store store.PlayerStore
	rules *rewards.Rules
	cheat *anticheat.Checker
	rng   *rand.Rand

	mu       sync.Mutex
	players  map[string]*playerState // connection id -> state
	npcs     map[string]*npcState
	moves    *coalesce.Queue[string, moveUpdate]
	respawns []respawnEntry
	tick     uint64
	nextNPC  uint64

	saves sync.WaitGroup
}

func newMapServer(id string, cfg config.Config, logger *zerolog.Logger, st store.PlayerStore, rules *rewards.Rules, cheat *anticheat.Checker, seed int64) *MapServer {
	mapLog := logger.With().Str("map", id).Logger()
	m := &MapServer{
		id:      id,
		cfg:     cfg,
		log:     &mapLog,
		store:   st,
		rules:   rules,
		cheat:   cheat,
		rng:     rand.New(rand.NewSource(seed)),
		players: make(map[string]*playerState),
		npcs:    make(map[string]*npcState),
		moves:   coalesce.NewQueue[string, moveUpdate](),
	}
	return m
}

// spawnNPCs seeds the map with count NPCs of npcType at random positions.
func (m *MapServer) spawnNPCs(npcType string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < count; i++ {
		m.spawnNPCLocked(npcType)
	}
}

func (m *MapServer) spawnNPCLocked(npcType string) *npcState {
	m.nextNPC++
	bound := m.cfg.WorldBound
	x := (m.rng.Float64()*2 - 1) * bound * 0.8
	y := (m.rng.Float64()*2 - 1) * bound * 0.8
	npc := &npcState{
		ID:        fmt.Sprintf("%s-npc-%d", m.id, m.nextNPC),
		Type:      npcType,
		X:         x,
		Y:         y,
		Health:    npcMaxHealthFor(npcType),
		MaxHealth: npcMaxHealthFor(npcType),
		lastGoodX: x,
		lastGoodY: y,
		lastSentX: x,
		lastSentY: y,
	}
	m.npcs[npc.ID] = npc
	return npc
}

func npcMaxHealthFor(npcType string) float64 {
	switch npcType {
	case "dreadnought":
		return 1200
	case "marauder":
		return 400
	default:
		return 160
	}
}

// PlayerCount returns the live registry size.
func (m *MapServer) PlayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// AddPlayer registers a joined player, re-checking capacity under the lock
// because admission at accept time raced other joins.
func (m *MapServer) AddPlayer(p *playerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.players) >= m.cfg.MapCapacity {
		return errMapFull
	}
	m.players[p.connID] = p
	return nil
}

// RemovePlayer takes a player out of the registry and the pending-move queue.
// Removal always proceeds; the save is dispatched afterwards and its failure
// only costs the write, never live-state consistency. The departure broadcast
// is likewise best-effort.
func (m *MapServer) RemovePlayer(connID string) *playerState {
	m.mu.Lock()
	p, ok := m.players[connID]
	if ok {
		delete(m.players, connID)
	}
	m.mu.Unlock()

	m.moves.Remove(connID)
	m.cheat.Forget(connID)

	if !ok {
		return nil
	}

	m.broadcastToMap(playerLeftMessage{Type: msgTypePlayerLeft, ID: p.Player.ID}, connID)
	m.SaveAsync(p.record(m.id))

	return p
}

// SaveAsync persists a record without blocking the caller. WaitSaves blocks
// until every save dispatched this way has finished, so shutdown does not lose
// progress that the server already promised to write.
func (m *MapServer) SaveAsync(rec *store.PlayerRecord) {
	m.saves.Add(1)
	go func() {
		defer m.saves.Done()
		if err := m.store.Save(context.Background(), rec); err != nil {
			m.log.Warn().Err(err).Str("auth_id", rec.AuthID).Msg("dispatched save failed")
		}
	}()
}

// WaitSaves blocks until all dispatched saves for this map have completed.
func (m *MapServer) WaitSaves() {
	m.saves.Wait()
}

// IsDead reports the player's death flag under the registry lock. Unknown
// players read as dead so callers drop their input.
func (m *MapServer) IsDead(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	return !ok || p.Dead
}

// PlayerSnapshot copies one player's public view under the registry lock.
func (m *MapServer) PlayerSnapshot(connID string) (Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return Player{}, false
	}
	return p.snapshot(), true
}

// QueueMove stores a validated position update for the next tick. Older
// pending updates for the same player are overwritten.
func (m *MapServer) QueueMove(connID string, up moveUpdate) {
	m.moves.Put(connID, up)
}

// Heartbeat refreshes the liveness timestamp for a player.
func (m *MapServer) Heartbeat(connID string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return false
	}
	p.lastHeartbeat = now
	return true
}

// ApplyProjectile damages an NPC on behalf of a player. On a kill the NPC is
// removed, a respawn is scheduled, and the shooter is paid per the reward
// rules.
func (m *MapServer) ApplyProjectile(connID, npcID string) (rewards.Reward, bool, error) {
	m.mu.Lock()
	shooter, ok := m.players[connID]
	if !ok || shooter.Dead {
		m.mu.Unlock()
		return rewards.Reward{}, false, errors.New("no living shooter")
	}
	npc, ok := m.npcs[npcID]
	if !ok {
		m.mu.Unlock()
		return rewards.Reward{}, false, fmt.Errorf("unknown npc %q", npcID)
	}

	npc.Health -= projectileDamage
	if npc.Health > 0 {
		npc.dirty = true
		m.mu.Unlock()
		return rewards.Reward{}, false, nil
	}

	delete(m.npcs, npcID)
	m.respawns = append(m.respawns, respawnEntry{npcType: npc.Type, at: time.Now().Add(npcRespawnDelay)})

	reward, known := m.rules.Lookup(npc.Type)
	if known {
		shooter.credits += reward.Credits
		shooter.cosmos += reward.Cosmos
		shooter.experience += reward.Experience
		shooter.honor += reward.Honor
	}
	killerID := shooter.Player.ID
	m.mu.Unlock()

	if !known {
		m.log.Warn().Str("npc_type", npc.Type).Msg("no reward rule for npc type")
	}
	m.broadcastNear(npc.X, npc.Y, nearBroadcastRadius, npcDiedMessage{
		Type:     msgTypeNPCDied,
		NPCID:    npcID,
		KillerID: killerID,
	}, "")
	return reward, true, nil
}

// SetCombat marks or clears a player's combat target so aggressive NPCs know
// who engaged them.
func (m *MapServer) SetCombat(connID, npcID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[connID]; ok {
		p.combatTarget = npcID
	}
}

// Respawn clears the death flag and resets vitals at the map origin.
func (m *MapServer) Respawn(connID string) (Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok || !p.Dead {
		return Player{}, false
	}
	p.Dead = false
	p.Health = p.MaxHealth
	p.Shield = p.MaxShield
	p.X, p.Y = 0, 0
	return p.snapshot(), true
}

// Snapshot copies the live registries for a join response.
func (m *MapServer) Snapshot() ([]Player, []NPC) {
	m.mu.Lock()
	defer m.mu.Unlock()
	players := make([]Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p.snapshot())
	}
	npcs := make([]NPC, 0, len(m.npcs))
	for _, npc := range m.npcs {
		npcs = append(npcs, npc.snapshot())
	}
	return players, npcs
}

// RunSimulation drives the fixed-rate tick loop until the context is done.
func (m *MapServer) RunSimulation(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(m.cfg.TickRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(m.cfg.TickRate)
			}
			last = now
			m.Step(now, dt)
		}
	}
}

// Step advances the simulation one tick and flushes broadcasts. Exposed
// separately from RunSimulation so tests can drive time by hand.
func (m *MapServer) Step(now time.Time, dt float64) {
	moved, departed, deaths := m.advance(now, dt)

	// A pruned player gets the same departure path as a clean disconnect:
	// left broadcast, queue cleanup, and a dispatched save of their progress.
	for _, p := range departed {
		if p.sub != nil {
			p.sub.close()
		}
		m.moves.Remove(p.connID)
		m.cheat.Forget(p.connID)
		m.broadcastToMap(playerLeftMessage{Type: msgTypePlayerLeft, ID: p.Player.ID}, p.connID)
		m.SaveAsync(p.record(m.id))
	}
	for i := range deaths {
		m.broadcastToMap(deaths[i], "")
	}
	for i := range moved {
		m.broadcastToMap(moved[i], moved[i].ID)
	}
	m.broadcastNpcUpdates()
}

// advance mutates the registries under the lock: heartbeat pruning, one
// consolidated position update per player, NPC behavior and integration, due
// respawns. No suspension happens mid-mutation; broadcasts are prepared here
// and sent by the caller.
func (m *MapServer) advance(now time.Time, dt float64) ([]playerMovedMessage, []*playerState, []playerDiedMessage) {
	pending := m.moves.Drain()

	m.mu.Lock()

	departed := make([]*playerState, 0)
	for id, p := range m.players {
		if now.Sub(p.lastHeartbeat) > disconnectAfter {
			delete(m.players, id)
			delete(pending, id)
			departed = append(departed, p)
			m.log.Info().Str("player", p.Player.ID).Msg("disconnecting on heartbeat timeout")
		}
	}

	moved := make([]playerMovedMessage, 0, len(pending))
	for id, up := range pending {
		p, ok := m.players[id]
		if !ok {
			continue
		}
		p.X, p.Y = up.X, up.Y
		if up.HasRotation {
			p.Rotation = up.Rotation
		}
		p.velocityX, p.velocityY = up.VelX, up.VelY
		moved = append(moved, playerMovedMessage{
			Type:     msgTypePlayerMoved,
			ID:       p.Player.ID,
			X:        p.X,
			Y:        p.Y,
			Rotation: p.Rotation,
			Pet:      up.Pet,
		})
	}

	m.tick++
	deaths := make([]playerDiedMessage, 0)
	for _, npc := range m.npcs {
		m.runNpcBehavior(npc, m.tick)
		m.integrateNpc(npc, dt)
		if victim, killed := m.applyNpcContactDamageLocked(npc, dt); killed {
			deaths = append(deaths, playerDiedMessage{
				Type:     msgTypePlayerDied,
				ID:       victim.Player.ID,
				KillerID: npc.ID,
			})
		}
	}

	due := m.respawns[:0]
	for _, entry := range m.respawns {
		if now.After(entry.at) {
			npc := m.spawnNPCLocked(entry.npcType)
			npc.dirty = true
			continue
		}
		due = append(due, entry)
	}
	m.respawns = due

	m.mu.Unlock()
	return moved, departed, deaths
}

// applyNpcContactDamageLocked lets an aggressive NPC wear down its target
// while the target sits inside attack range. It reports the victim when the
// damage was lethal so the caller can announce the death; the victim needs
// that message to know a respawn request is in order.
func (m *MapServer) applyNpcContactDamageLocked(npc *npcState, dt float64) (*playerState, bool) {
	if npc.Behavior != behaviorAggressive {
		return nil, false
	}
	target, ok := m.players[npc.targetID]
	if !ok || target.Dead {
		return nil, false
	}
	dx, dy := target.X-npc.X, target.Y-npc.Y
	if dx*dx+dy*dy > npcAttackRange*npcAttackRange {
		return nil, false
	}
	if target.applyDamage(npcDamagePerSecond * dt) {
		m.log.Info().Str("player", target.Player.ID).Str("npc", npc.ID).Msg("player destroyed")
		return target, true
	}
	return nil, false
}

const npcDamagePerSecond = 25.0

// transferPlayer moves a player here from src. The player leaves the source
// registry before entering this one, so the one-map invariant holds at every
// instant; on a capacity failure the player is restored to the source map.
func (m *MapServer) transferPlayer(src *MapServer, connID string) error {
	src.mu.Lock()
	p, ok := src.players[connID]
	if ok {
		delete(src.players, connID)
	}
	src.mu.Unlock()
	if !ok {
		return fmt.Errorf("player %q not in map %q", connID, src.id)
	}
	src.moves.Remove(connID)
	src.cheat.Forget(connID)

	src.broadcastToMap(playerLeftMessage{Type: msgTypePlayerLeft, ID: p.Player.ID}, connID)

	if err := m.AddPlayer(p); err != nil {
		src.mu.Lock()
		src.players[connID] = p
		src.mu.Unlock()
		return fmt.Errorf("transfer to %q: %w", m.id, err)
	}
	return nil
}
