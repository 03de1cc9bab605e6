package protocol

import "fmt"

// DecodeMessage converts one sanitized payload into its typed variant. The
// input is validator output, so field shapes are already enforced; the
// assertions here are bookkeeping, not a second validation layer. An unknown
// type is a programming error (the catalog and this switch drifted) and is
// surfaced to the caller.
func DecodeMessage(messageType string, sanitized map[string]any) (Message, error) {
	switch Normalize(messageType) {
	case TypeJoin:
		return JoinPayload{
			AuthID:   str(sanitized, "authId"),
			Nickname: str(sanitized, "nickname"),
			MapID:    str(sanitized, "mapId"),
			X:        num(sanitized, "x"),
			Y:        num(sanitized, "y"),
		}, nil
	case TypePositionUpdate:
		p := PositionPayload{
			X:         num(sanitized, "x"),
			Y:         num(sanitized, "y"),
			Rotation:  optNum(sanitized, "rotation"),
			VelocityX: num(sanitized, "velocityX"),
			VelocityY: num(sanitized, "velocityY"),
		}
		if pet, ok := sanitized["pet"].(map[string]any); ok {
			p.Pet = &PetPose{
				X:        num(pet, "x"),
				Y:        num(pet, "y"),
				Rotation: num(pet, "rotation"),
				Nickname: str(pet, "nickname"),
			}
		}
		return p, nil
	case TypeHeartbeat:
		return HeartbeatPayload{Timestamp: num(sanitized, "timestamp")}, nil
	case TypeChatMessage:
		return ChatPayload{Content: str(sanitized, "content")}, nil
	case TypeProjectileFired:
		return ProjectilePayload{
			TargetID: str(sanitized, "npcId"),
			X:        num(sanitized, "x"),
			Y:        num(sanitized, "y"),
		}, nil
	case TypeStartCombat:
		return StartCombatPayload{TargetID: str(sanitized, "npcId")}, nil
	case TypeStopCombat:
		return StopCombatPayload{TargetID: str(sanitized, "npcId")}, nil
	case TypeRequestPlayerData:
		return PlayerDataRequest{}, nil
	case TypeSaveRequest:
		return SaveRequest{}, nil
	case TypePlayerRespawn:
		return RespawnRequest{}, nil
	case TypeGlobalMonitor:
		return GlobalMonitorRequest{}, nil
	case TypeSkillUpgrade:
		return SkillUpgradePayload{SkillID: str(sanitized, "skillId")}, nil
	case TypeRequestLeaderboard:
		p := LeaderboardPayload{}
		if n, ok := sanitized["limit"].(float64); ok {
			p.Limit = int(n)
		}
		return p, nil
	case TypeEquipItem:
		return EquipItemPayload{ItemID: str(sanitized, "itemId")}, nil
	case TypeSellItem:
		return SellItemPayload{ItemID: str(sanitized, "itemId")}, nil
	case TypeShipSkinAction:
		return ShipSkinPayload{
			SkinID: str(sanitized, "skinId"),
			Action: str(sanitized, "action"),
		}, nil
	case TypeResourceCollect:
		return ResourceCollectPayload{ResourceID: str(sanitized, "resourceId")}, nil
	case TypeCraftItem:
		return CraftPayload{RecipeID: str(sanitized, "recipeId")}, nil
	case TypePortalUse:
		return PortalPayload{PortalID: str(sanitized, "portalId")}, nil
	case TypeQuestAccept:
		return QuestAcceptPayload{QuestID: str(sanitized, "questId")}, nil
	case TypeQuestAbandon:
		return QuestAbandonPayload{QuestID: str(sanitized, "questId")}, nil
	case TypeQuestProgressUpdate:
		return QuestProgressPayload{
			QuestID:  str(sanitized, "questId"),
			Progress: num(sanitized, "progress"),
		}, nil
	default:
		return nil, fmt.Errorf("no decoder for message type %q", messageType)
	}
}

func str(sanitized map[string]any, key string) string {
	s, _ := sanitized[key].(string)
	return s
}

func num(sanitized map[string]any, key string) float64 {
	n, _ := sanitized[key].(float64)
	return n
}

func optNum(sanitized map[string]any, key string) *float64 {
	if n, ok := sanitized[key].(float64); ok {
		return &n
	}
	return nil
}
