// Package protocol defines the wire contract shared by the validator, the
// boundary enforcer, and the connection dispatch: the catalog of inbound
// message types, the envelope every inbound object must carry, and the typed
// payloads handlers consume.
package protocol

import "sort"

// Inbound message types. The catalog below is the single authoritative list;
// anything outside it is rejected, not merely warned about.
const (
	TypeJoin                = "join"
	TypePositionUpdate      = "position_update"
	TypeHeartbeat           = "heartbeat"
	TypeProjectileFired     = "projectile_fired"
	TypeStartCombat         = "start_combat"
	TypeStopCombat          = "stop_combat"
	TypeRequestPlayerData   = "request_player_data"
	TypeChatMessage         = "chat_message"
	TypeSaveRequest         = "save_request"
	TypePlayerRespawn       = "player_respawn_request"
	TypeGlobalMonitor       = "global_monitor_request"
	TypeSkillUpgrade        = "skill_upgrade_request"
	TypeRequestLeaderboard  = "request_leaderboard"
	TypeEquipItem           = "equip_item"
	TypeSellItem            = "sell_item"
	TypeShipSkinAction      = "ship_skin_action"
	TypeResourceCollect     = "resource_collect"
	TypeCraftItem           = "craft_item"
	TypePortalUse           = "portal_use"
	TypeQuestProgressUpdate = "quest_progress_update"
	TypeQuestAccept         = "quest_accept"
	TypeQuestAbandon        = "quest_abandon"
)

// legacyEquipAlias is a misspelling some shipped clients still send. It is
// tolerated and mapped onto TypeEquipItem before any other processing.
const legacyEquipAlias = "equip_iteam"

var inboundCatalog = map[string]struct{}{
	TypeJoin:                {},
	TypePositionUpdate:      {},
	TypeHeartbeat:           {},
	TypeProjectileFired:     {},
	TypeStartCombat:         {},
	TypeStopCombat:          {},
	TypeRequestPlayerData:   {},
	TypeChatMessage:         {},
	TypeSaveRequest:         {},
	TypePlayerRespawn:       {},
	TypeGlobalMonitor:       {},
	TypeSkillUpgrade:        {},
	TypeRequestLeaderboard:  {},
	TypeEquipItem:           {},
	TypeSellItem:            {},
	TypeShipSkinAction:      {},
	TypeResourceCollect:     {},
	TypeCraftItem:           {},
	TypePortalUse:           {},
	TypeQuestProgressUpdate: {},
	TypeQuestAccept:         {},
	TypeQuestAbandon:        {},
}

// Normalize maps tolerated legacy aliases onto their canonical type and
// returns the type unchanged otherwise.
func Normalize(messageType string) string {
	if messageType == legacyEquipAlias {
		return TypeEquipItem
	}
	return messageType
}

// Known reports whether messageType (after Normalize) is in the inbound
// catalog.
func Known(messageType string) bool {
	_, ok := inboundCatalog[Normalize(messageType)]
	return ok
}

// CatalogTypes returns the catalog entries in sorted order, for diagnostics
// and for rejection reasons that list the allowed set.
func CatalogTypes() []string {
	types := make([]string, 0, len(inboundCatalog))
	for t := range inboundCatalog {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
