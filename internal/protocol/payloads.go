package protocol

// Envelope is the part of every inbound object the connection layer inspects
// before validation: a type tag plus one of the two identifying fields.
type Envelope struct {
	Type     string `json:"type" jsonschema:"title=Message type,description=One of the inbound catalog types"`
	ClientID string `json:"clientId,omitempty" jsonschema:"description=Ephemeral connection-scoped id"`
	PlayerID string `json:"playerId,omitempty" jsonschema:"description=Numeric display identity as a string"`
}

// HasIdentity reports whether the envelope carries at least one identifying
// field. Messages without one are structurally invalid and dropped.
func (e Envelope) HasIdentity() bool {
	return e.ClientID != "" || e.PlayerID != ""
}

// Message is the closed set of decoded inbound payloads, one variant per
// catalog entry. DecodeMessage turns validator output into a variant; the
// dispatcher switches over the concrete types, so a catalog entry without a
// handler is a missing case rather than a stringly-typed fallthrough. The
// schema generator (cmd/protocolschema) turns the same structs into a
// machine-readable contract.
type Message interface {
	isMessage()
}

type JoinPayload struct {
	AuthID   string  `json:"authId" jsonschema:"description=Persistent authentication identity"`
	Nickname string  `json:"nickname,omitempty"`
	MapID    string  `json:"mapId,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
}

type PositionPayload struct {
	X         float64  `json:"x" jsonschema:"minimum=-50000,maximum=50000"`
	Y         float64  `json:"y" jsonschema:"minimum=-50000,maximum=50000"`
	Rotation  *float64 `json:"rotation,omitempty" jsonschema:"description=Radians normalized into (-pi pi]"`
	VelocityX float64  `json:"velocityX,omitempty"`
	VelocityY float64  `json:"velocityY,omitempty"`
	Pet       *PetPose `json:"pet,omitempty"`
}

// PetPose is the optional companion position carried alongside a position
// update. It is validated and clamped independently of the primary position.
type PetPose struct {
	X        float64 `json:"x" jsonschema:"minimum=-50000,maximum=50000"`
	Y        float64 `json:"y" jsonschema:"minimum=-50000,maximum=50000"`
	Rotation float64 `json:"rotation,omitempty"`
	Nickname string  `json:"nickname,omitempty" jsonschema:"maxLength=24"`
}

type HeartbeatPayload struct {
	Timestamp float64 `json:"timestamp" jsonschema:"description=Client clock in unix millis within 60s of server time"`
}

type ChatPayload struct {
	Content string `json:"content" jsonschema:"minLength=1,maxLength=200"`
}

type ProjectilePayload struct {
	TargetID string  `json:"npcId"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
}

type StartCombatPayload struct {
	TargetID string `json:"npcId"`
}

type StopCombatPayload struct {
	TargetID string `json:"npcId"`
}

// Request variants with no payload fields beyond the envelope.
type (
	PlayerDataRequest    struct{}
	SaveRequest          struct{}
	RespawnRequest       struct{}
	GlobalMonitorRequest struct{}
)

type SkillUpgradePayload struct {
	SkillID string `json:"skillId"`
}

type LeaderboardPayload struct {
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100"`
}

type EquipItemPayload struct {
	ItemID string `json:"itemId"`
}

type SellItemPayload struct {
	ItemID string `json:"itemId"`
}

type ShipSkinPayload struct {
	SkinID string `json:"skinId"`
	Action string `json:"action" jsonschema:"enum=equip,enum=unequip,enum=preview"`
}

type ResourceCollectPayload struct {
	ResourceID string `json:"resourceId"`
}

type CraftPayload struct {
	RecipeID string `json:"recipeId"`
}

type PortalPayload struct {
	PortalID string `json:"portalId"`
}

type QuestAcceptPayload struct {
	QuestID string `json:"questId"`
}

type QuestAbandonPayload struct {
	QuestID string `json:"questId"`
}

type QuestProgressPayload struct {
	QuestID  string  `json:"questId"`
	Progress float64 `json:"progress,omitempty" jsonschema:"minimum=0"`
}

func (JoinPayload) isMessage()            {}
func (PositionPayload) isMessage()        {}
func (HeartbeatPayload) isMessage()       {}
func (ChatPayload) isMessage()            {}
func (ProjectilePayload) isMessage()      {}
func (StartCombatPayload) isMessage()     {}
func (StopCombatPayload) isMessage()      {}
func (PlayerDataRequest) isMessage()      {}
func (SaveRequest) isMessage()            {}
func (RespawnRequest) isMessage()         {}
func (GlobalMonitorRequest) isMessage()   {}
func (SkillUpgradePayload) isMessage()    {}
func (LeaderboardPayload) isMessage()     {}
func (EquipItemPayload) isMessage()       {}
func (SellItemPayload) isMessage()        {}
func (ShipSkinPayload) isMessage()        {}
func (ResourceCollectPayload) isMessage() {}
func (CraftPayload) isMessage()           {}
func (PortalPayload) isMessage()          {}
func (QuestAcceptPayload) isMessage()     {}
func (QuestAbandonPayload) isMessage()    {}
func (QuestProgressPayload) isMessage()   {}
