package main

// Outbound wire messages. Everything the server emits is a JSON object with a
// type tag; inbound shapes live in internal/protocol.

type joinResponse struct {
	Ver        int      `json:"ver"`
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	MapID      string   `json:"mapId"`
	Players    []Player `json:"players"`
	NPCs       []NPC    `json:"npcs"`
	ServerTime int64    `json:"serverTime"`
}

type playerMovedMessage struct {
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Pet      *PetPos `json:"pet,omitempty"`
}

// PetPos mirrors the sanitized companion position relayed with a move.
type PetPos struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation,omitempty"`
	Nickname string  `json:"nickname,omitempty"`
}

type npcUpdateMessage struct {
	Type string `json:"type"`
	NPCs []NPC  `json:"npcs"`
}

type playerLeftMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type chatBroadcastMessage struct {
	Type    string `json:"type"`
	From    string `json:"from"`
	Content string `json:"content"`
	SentAt  int64  `json:"sentAt"`
}

type heartbeatAckMessage struct {
	Type       string  `json:"type"`
	ServerTime int64   `json:"serverTime"`
	ClientTime float64 `json:"clientTime"`
}

type npcDiedMessage struct {
	Type     string `json:"type"`
	NPCID    string `json:"npcId"`
	KillerID string `json:"killerId"`
}

type playerDiedMessage struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	KillerID string `json:"killerId"`
}

type rewardMessage struct {
	Type       string `json:"type"`
	Credits    int64  `json:"credits"`
	Cosmos     int64  `json:"cosmos"`
	Experience int64  `json:"experience"`
	Honor      int64  `json:"honor"`
}

type playerRespawnMessage struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

type playerDataMessage struct {
	Type       string  `json:"type"`
	ID         string  `json:"id"`
	Nickname   string  `json:"nickname"`
	MapID      string  `json:"mapId"`
	Health     float64 `json:"health"`
	MaxHealth  float64 `json:"maxHealth"`
	Shield     float64 `json:"shield"`
	MaxShield  float64 `json:"maxShield"`
	Credits    int64   `json:"credits"`
	Cosmos     int64   `json:"cosmos"`
	Experience int64   `json:"experience"`
	Honor      int64   `json:"honor"`
}

type leaderboardMessage struct {
	Type    string             `json:"type"`
	Entries []leaderboardEntry `json:"entries"`
}

type leaderboardEntry struct {
	ID         string `json:"id"`
	Nickname   string `json:"nickname"`
	Experience int64  `json:"experience"`
	Honor      int64  `json:"honor"`
}

type globalMonitorMessage struct {
	Type       string         `json:"type"`
	ServerTime int64          `json:"serverTime"`
	Maps       map[string]int `json:"maps"` // map id -> player count
}

type playerJoinedMessage struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

type mapChangedMessage struct {
	Type    string   `json:"type"`
	MapID   string   `json:"mapId"`
	Players []Player `json:"players"`
	NPCs    []NPC    `json:"npcs"`
}

type questUpdateMessage struct {
	Type      string  `json:"type"`
	QuestID   string  `json:"questId"`
	Progress  float64 `json:"progress"`
	Completed bool    `json:"completed,omitempty"`
	Abandoned bool    `json:"abandoned,omitempty"`
}

type errorMessage struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

const (
	msgTypeJoinAck       = "join_ack"
	msgTypePlayerMoved   = "player_moved"
	msgTypeNPCUpdate     = "npc_update"
	msgTypePlayerLeft    = "player_left"
	msgTypeChat          = "chat_message"
	msgTypeHeartbeatAck  = "heartbeat_ack"
	msgTypeNPCDied       = "npc_died"
	msgTypePlayerDied    = "player_died"
	msgTypeReward        = "reward"
	msgTypeRespawn       = "player_respawn"
	msgTypePlayerData    = "player_data"
	msgTypeLeaderboard   = "leaderboard"
	msgTypeGlobalMonitor = "global_monitor"
	msgTypePlayerJoined  = "player_joined"
	msgTypeMapChanged    = "map_changed"
	msgTypeQuestUpdate   = "quest_update"
	msgTypeError         = "error"

	errCodeServerFull = "SERVER_FULL"
	errCodeBadRequest = "BAD_REQUEST"
)
