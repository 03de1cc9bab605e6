package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"starfield/server/internal/rewards"
	"starfield/server/internal/store"
)

// Economy and quest operations. All of them mutate playerState under the map
// lock and complete without suspension; anything durable is picked up by the
// next save.

const (
	skillUpgradeCost = 1000
	craftCost        = 500
	itemSellValue    = 100
)

var (
	errInsufficientCredits = errors.New("insufficient credits")
	errItemNotEquipped     = errors.New("item not equipped")
)

// PlayerData returns the private data view for one player.
func (m *MapServer) PlayerData(connID string) (playerDataMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return playerDataMessage{}, false
	}
	return playerDataMessage{
		Type:       msgTypePlayerData,
		ID:         p.Player.ID,
		Nickname:   p.Nickname,
		MapID:      m.id,
		Health:     p.Health,
		MaxHealth:  p.MaxHealth,
		Shield:     p.Shield,
		MaxShield:  p.MaxShield,
		Credits:    p.credits,
		Cosmos:     p.cosmos,
		Experience: p.experience,
		Honor:      p.honor,
	}, true
}

// Record snapshots the durable form of a player for an explicit save.
func (m *MapServer) Record(connID string) (*store.PlayerRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return nil, false
	}
	return p.record(m.id), true
}

// UpgradeSkill charges the upgrade cost and appends the skill to the upgrade
// summary.
func (m *MapServer) UpgradeSkill(connID, skillID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return errors.New("player not in map")
	}
	if p.credits < skillUpgradeCost {
		return errInsufficientCredits
	}
	p.credits -= skillUpgradeCost
	p.upgrades = appendSummary(p.upgrades, "skill:"+skillID)
	return nil
}

// EquipItem records an equipped item in the upgrade summary.
func (m *MapServer) EquipItem(connID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return errors.New("player not in map")
	}
	p.upgrades = appendSummary(p.upgrades, "equip:"+itemID)
	return nil
}

// SellItem removes an equipped item entry and credits the sale value. Selling
// an item that was never equipped pays nothing.
func (m *MapServer) SellItem(connID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return errors.New("player not in map")
	}
	next, removed := removeSummary(p.upgrades, "equip:"+itemID)
	if !removed {
		return errItemNotEquipped
	}
	p.upgrades = next
	p.credits += itemSellValue
	return nil
}

// ApplySkin records the active ship skin. Preview changes nothing durable.
func (m *MapServer) ApplySkin(connID, skinID, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return errors.New("player not in map")
	}
	switch action {
	case "equip":
		p.upgrades = appendSummary(removeSummaryPrefix(p.upgrades, "skin:"), "skin:"+skinID)
	case "unequip":
		p.upgrades = removeSummaryPrefix(p.upgrades, "skin:")
	}
	return nil
}

// CraftItem charges the crafting cost and records the crafted recipe.
func (m *MapServer) CraftItem(connID, recipeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return errors.New("player not in map")
	}
	if p.credits < craftCost {
		return errInsufficientCredits
	}
	p.credits -= craftCost
	p.upgrades = appendSummary(p.upgrades, "craft:"+recipeID)
	return nil
}

// GrantReward credits a reward to the player, e.g. for collecting a resource.
func (m *MapServer) GrantReward(connID string, reward rewards.Reward) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return false
	}
	p.credits += reward.Credits
	p.cosmos += reward.Cosmos
	p.experience += reward.Experience
	p.honor += reward.Honor
	return true
}

// QuestAccept starts tracking a quest at zero progress.
func (m *MapServer) QuestAccept(connID, questID string) error {
	return m.mutateQuests(connID, func(quests map[string]float64) {
		if _, active := quests[questID]; !active {
			quests[questID] = 0
		}
	})
}

// QuestAbandon drops a tracked quest.
func (m *MapServer) QuestAbandon(connID, questID string) error {
	return m.mutateQuests(connID, func(quests map[string]float64) {
		delete(quests, questID)
	})
}

// QuestProgress records progress for an accepted quest. Reaching 100 completes
// it: the quest leaves the tracker and the reward is paid inline.
func (m *MapServer) QuestProgress(connID, questID string, progress float64) (rewards.Reward, bool, error) {
	var (
		reward    rewards.Reward
		completed bool
	)
	err := m.mutateQuestsPlayer(connID, func(p *playerState, quests map[string]float64) error {
		if _, active := quests[questID]; !active {
			return fmt.Errorf("quest %q not accepted", questID)
		}
		if progress < 100 {
			quests[questID] = progress
			return nil
		}
		delete(quests, questID)
		completed = true
		r, ok := m.rules.Lookup("quest:" + questID)
		if !ok {
			r, _ = m.rules.Lookup("quest:default")
		}
		reward = r
		p.credits += r.Credits
		p.cosmos += r.Cosmos
		p.experience += r.Experience
		p.honor += r.Honor
		return nil
	})
	return reward, completed, err
}

func (m *MapServer) mutateQuests(connID string, fn func(map[string]float64)) error {
	return m.mutateQuestsPlayer(connID, func(_ *playerState, quests map[string]float64) error {
		fn(quests)
		return nil
	})
}

func (m *MapServer) mutateQuestsPlayer(connID string, fn func(*playerState, map[string]float64) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[connID]
	if !ok {
		return errors.New("player not in map")
	}

	quests := decodeQuests(p.questProgress)
	if err := fn(p, quests); err != nil {
		return err
	}
	p.questProgress = encodeQuests(quests)
	return nil
}

// Quest progress is stored as a JSON object questId -> progress inside the
// opaque summary column.
func decodeQuests(serialized string) map[string]float64 {
	quests := make(map[string]float64)
	if serialized != "" {
		// A corrupt summary resets to empty rather than wedging the player.
		_ = json.Unmarshal([]byte(serialized), &quests)
	}
	return quests
}

func encodeQuests(quests map[string]float64) string {
	if len(quests) == 0 {
		return ""
	}
	data, err := json.Marshal(quests)
	if err != nil {
		return ""
	}
	return string(data)
}

// Upgrade summaries are comma-separated entries like "skill:laser-2".
func appendSummary(summary, entry string) string {
	if summary == "" {
		return entry
	}
	return summary + "," + entry
}

func removeSummary(summary, entry string) (string, bool) {
	parts := strings.Split(summary, ",")
	kept := parts[:0]
	removed := false
	for _, part := range parts {
		if part == entry {
			removed = true
			continue
		}
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ","), removed
}

func removeSummaryPrefix(summary, prefix string) string {
	parts := strings.Split(summary, ",")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || strings.HasPrefix(part, prefix) {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ",")
}
