package main

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"starfield/server/internal/protocol"
	"starfield/server/internal/store"
)

// dispatch decodes one validated, authorized message into its typed variant
// and routes it. The switch covers every variant; catalog_test.go keeps the
// catalog, the decoder, and this switch in lockstep so adding a type without
// a handler fails the build's tests.
func (h *Hub) dispatch(c *connection, msgType string, sanitized map[string]any) {
	msg, err := protocol.DecodeMessage(msgType, sanitized)
	if err != nil {
		h.log.Error().Str("msg_type", msgType).Err(err).Msg("catalog entry has no decoder")
		return
	}

	if _, isJoin := msg.(protocol.JoinPayload); !isJoin && c.player == nil {
		c.sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeBadRequest, Reason: "join required"})
		return
	}

	switch p := msg.(type) {
	case protocol.JoinPayload:
		h.handleJoin(c, p)
	case protocol.PositionPayload:
		h.handlePositionUpdate(c, p)
	case protocol.HeartbeatPayload:
		h.handleHeartbeat(c, p)
	case protocol.ChatPayload:
		h.handleChat(c, p)
	case protocol.ProjectilePayload:
		h.handleProjectile(c, p)
	case protocol.StartCombatPayload:
		c.mapSrv.SetCombat(c.id, p.TargetID)
	case protocol.StopCombatPayload:
		c.mapSrv.SetCombat(c.id, "")
	case protocol.PlayerDataRequest:
		h.handlePlayerData(c)
	case protocol.SaveRequest:
		h.handleSave(c)
	case protocol.RespawnRequest:
		h.handleRespawn(c)
	case protocol.GlobalMonitorRequest:
		c.sub.sendJSON(globalMonitorMessage{
			Type:       msgTypeGlobalMonitor,
			ServerTime: time.Now().UnixMilli(),
			Maps:       h.mapCounts(),
		})
	case protocol.SkillUpgradePayload:
		h.replyAfterOp(c, c.mapSrv.UpgradeSkill(c.id, p.SkillID))
	case protocol.LeaderboardPayload:
		h.handleLeaderboard(c, p)
	case protocol.EquipItemPayload:
		h.replyAfterOp(c, c.mapSrv.EquipItem(c.id, p.ItemID))
	case protocol.SellItemPayload:
		h.replyAfterOp(c, c.mapSrv.SellItem(c.id, p.ItemID))
	case protocol.ShipSkinPayload:
		h.replyAfterOp(c, c.mapSrv.ApplySkin(c.id, p.SkinID, p.Action))
	case protocol.ResourceCollectPayload:
		h.handleResourceCollect(c)
	case protocol.CraftPayload:
		h.replyAfterOp(c, c.mapSrv.CraftItem(c.id, p.RecipeID))
	case protocol.PortalPayload:
		h.handlePortal(c, p)
	case protocol.QuestAcceptPayload:
		h.handleQuestAccept(c, p)
	case protocol.QuestAbandonPayload:
		h.handleQuestAbandon(c, p)
	case protocol.QuestProgressPayload:
		h.handleQuestProgress(c, p)
	default:
		// Unreachable while the catalog test holds; a quiet drop here would
		// hide a missing handler, so it is logged at error level.
		h.log.Error().Str("msg_type", msgType).Msg("catalog entry has no handler")
	}
}

func (h *Hub) handleJoin(c *connection, p protocol.JoinPayload) {
	if c.player != nil {
		c.sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeBadRequest, Reason: "already joined"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	rec, err := h.store.Load(ctx, p.AuthID)
	cancel()
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = &store.PlayerRecord{
			AuthID:    p.AuthID,
			DisplayID: h.nextDisplayID.Add(1),
			Nickname:  p.Nickname,
			MapID:     c.mapSrv.id,
			Health:    100,
			MaxHealth: 100,
		}
	case err != nil:
		h.log.Error().Err(err).Str("auth_id", p.AuthID).Msg("load player record failed")
		c.sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeBadRequest, Reason: "could not load player record"})
		return
	}
	if p.Nickname != "" {
		rec.Nickname = p.Nickname
	}

	player := newPlayerState(c.id, rec, c.sub, time.Now())

	// The load above was a suspension point; capacity is re-checked under the
	// registry lock rather than trusted from admission time.
	if err := c.mapSrv.AddPlayer(player); err != nil {
		c.sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeServerFull, Reason: "map is at capacity, try later"})
		c.sub.closeWith(websocket.CloseTryAgainLater, errCodeServerFull)
		return
	}
	c.player = player

	players, npcs := c.mapSrv.Snapshot()
	c.sub.sendJSON(joinResponse{
		Ver:        ProtocolVersion,
		Type:       msgTypeJoinAck,
		ID:         player.Player.ID,
		MapID:      c.mapSrv.id,
		Players:    players,
		NPCs:       npcs,
		ServerTime: time.Now().UnixMilli(),
	})
	// Once AddPlayer returns, the tick loop owns the state; the broadcast
	// view is copied under the registry lock.
	if snap, ok := c.mapSrv.PlayerSnapshot(c.id); ok {
		c.mapSrv.broadcastToMap(playerJoinedMessage{Type: msgTypePlayerJoined, Player: snap}, c.id)
	}
}

func (h *Hub) handlePositionUpdate(c *connection, p protocol.PositionPayload) {
	if c.mapSrv.IsDead(c.id) {
		return
	}

	if res := h.cheat.Check(c.id, p.X, p.Y, time.Now()); !res.Valid {
		h.logSecurityViolation(c, protocol.TypePositionUpdate, strings.Join(res.Errors, "; "))
		return
	}

	up := moveUpdate{
		X:    p.X,
		Y:    p.Y,
		VelX: p.VelocityX,
		VelY: p.VelocityY,
	}
	if p.Rotation != nil {
		up.Rotation = *p.Rotation
		up.HasRotation = true
	}
	if p.Pet != nil {
		up.Pet = &PetPos{
			X:        p.Pet.X,
			Y:        p.Pet.Y,
			Rotation: p.Pet.Rotation,
			Nickname: p.Pet.Nickname,
		}
	}

	c.mapSrv.QueueMove(c.id, up)
}

func (h *Hub) handleHeartbeat(c *connection, p protocol.HeartbeatPayload) {
	now := time.Now()
	if !c.mapSrv.Heartbeat(c.id, now) {
		return
	}
	c.sub.sendJSON(heartbeatAckMessage{
		Type:       msgTypeHeartbeatAck,
		ServerTime: now.UnixMilli(),
		ClientTime: p.Timestamp,
	})
}

func (h *Hub) handleChat(c *connection, p protocol.ChatPayload) {
	c.mapSrv.broadcastToMap(chatBroadcastMessage{
		Type:    msgTypeChat,
		From:    c.player.Player.ID,
		Content: p.Content,
		SentAt:  time.Now().UnixMilli(),
	}, "")
}

func (h *Hub) handleProjectile(c *connection, p protocol.ProjectilePayload) {
	reward, killed, err := c.mapSrv.ApplyProjectile(c.id, p.TargetID)
	if err != nil {
		h.log.Debug().Err(err).Str("conn", c.id).Msg("projectile dropped")
		return
	}
	if killed {
		c.sub.sendJSON(rewardMessage{
			Type:       msgTypeReward,
			Credits:    reward.Credits,
			Cosmos:     reward.Cosmos,
			Experience: reward.Experience,
			Honor:      reward.Honor,
		})
	}
}

func (h *Hub) handlePlayerData(c *connection) {
	if data, ok := c.mapSrv.PlayerData(c.id); ok {
		c.sub.sendJSON(data)
	}
}

func (h *Hub) handleSave(c *connection) {
	if rec, ok := c.mapSrv.Record(c.id); ok {
		c.mapSrv.SaveAsync(rec)
	}
}

func (h *Hub) handleRespawn(c *connection) {
	snapshot, ok := c.mapSrv.Respawn(c.id)
	if !ok {
		c.sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeBadRequest, Reason: "not dead"})
		return
	}
	c.mapSrv.broadcastToMap(playerRespawnMessage{Type: msgTypeRespawn, Player: snapshot}, "")
}

func (h *Hub) handleLeaderboard(c *connection, p protocol.LeaderboardPayload) {
	limit := 10
	if p.Limit > 0 {
		limit = p.Limit
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	entries, err := h.store.Leaderboard(ctx, limit)
	cancel()
	if err != nil {
		h.log.Error().Err(err).Msg("leaderboard query failed")
		return
	}

	msg := leaderboardMessage{Type: msgTypeLeaderboard, Entries: make([]leaderboardEntry, 0, len(entries))}
	for _, e := range entries {
		msg.Entries = append(msg.Entries, leaderboardEntry{
			ID:         formatDisplayID(e.DisplayID),
			Nickname:   e.Nickname,
			Experience: e.Experience,
			Honor:      e.Honor,
		})
	}
	c.sub.sendJSON(msg)
}

func (h *Hub) handleResourceCollect(c *connection) {
	reward, _ := h.rules.Lookup("resource:default")
	if c.mapSrv.GrantReward(c.id, reward) {
		c.sub.sendJSON(rewardMessage{
			Type:       msgTypeReward,
			Credits:    reward.Credits,
			Cosmos:     reward.Cosmos,
			Experience: reward.Experience,
			Honor:      reward.Honor,
		})
	}
}

func (h *Hub) handlePortal(c *connection, p protocol.PortalPayload) {
	destID, ok := strings.CutPrefix(p.PortalID, "to-")
	if !ok || destID == "" {
		c.sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeBadRequest, Reason: "unknown portal"})
		return
	}

	dest := h.getOrCreateMap(destID)
	if dest == c.mapSrv {
		return
	}
	if err := dest.transferPlayer(c.mapSrv, c.id); err != nil {
		c.sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeServerFull, Reason: "destination map is full"})
		return
	}
	c.mapSrv = dest

	players, npcs := dest.Snapshot()
	c.sub.sendJSON(mapChangedMessage{Type: msgTypeMapChanged, MapID: dest.id, Players: players, NPCs: npcs})
	if snap, ok := dest.PlayerSnapshot(c.id); ok {
		dest.broadcastToMap(playerJoinedMessage{Type: msgTypePlayerJoined, Player: snap}, c.id)
	}
}

func (h *Hub) handleQuestAccept(c *connection, p protocol.QuestAcceptPayload) {
	if err := c.mapSrv.QuestAccept(c.id, p.QuestID); err != nil {
		h.opError(c, err)
		return
	}
	c.sub.sendJSON(questUpdateMessage{Type: msgTypeQuestUpdate, QuestID: p.QuestID, Progress: 0})
}

func (h *Hub) handleQuestAbandon(c *connection, p protocol.QuestAbandonPayload) {
	if err := c.mapSrv.QuestAbandon(c.id, p.QuestID); err != nil {
		h.opError(c, err)
		return
	}
	c.sub.sendJSON(questUpdateMessage{Type: msgTypeQuestUpdate, QuestID: p.QuestID, Abandoned: true})
}

func (h *Hub) handleQuestProgress(c *connection, p protocol.QuestProgressPayload) {
	reward, completed, err := c.mapSrv.QuestProgress(c.id, p.QuestID, p.Progress)
	if err != nil {
		h.opError(c, err)
		return
	}
	c.sub.sendJSON(questUpdateMessage{
		Type:      msgTypeQuestUpdate,
		QuestID:   p.QuestID,
		Progress:  min(p.Progress, 100),
		Completed: completed,
	})
	if completed {
		c.sub.sendJSON(rewardMessage{
			Type:       msgTypeReward,
			Credits:    reward.Credits,
			Cosmos:     reward.Cosmos,
			Experience: reward.Experience,
			Honor:      reward.Honor,
		})
	}
}

// replyAfterOp converts an economy operation result into either a refreshed
// player-data view or a structured error.
func (h *Hub) replyAfterOp(c *connection, err error) {
	if err != nil {
		h.opError(c, err)
		return
	}
	h.handlePlayerData(c)
}

func (h *Hub) opError(c *connection, err error) {
	c.sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeBadRequest, Reason: err.Error()})
}

func formatDisplayID(id int64) string {
	return strconv.FormatInt(id, 10)
}
