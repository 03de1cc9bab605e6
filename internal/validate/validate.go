// Package validate is the stateless per-message-type schema checker and
// sanitizer. Its output is the only representation of client input the rest
// of the server trusts: fields outside a type's schema are dropped, never
// passed through, and unknown message types fail closed.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"starfield/server/internal/protocol"
)

// Result carries the outcome of validating one inbound message. When Valid is
// false the caller must drop the message; Sanitized is nil in that case so a
// partially checked payload can never leak downstream.
type Result struct {
	Valid     bool
	Errors    []string
	Sanitized map[string]any
}

// Limits are the tuned bounds the validator enforces. They are configuration,
// not derived values; see config.Default for the shipped numbers.
type Limits struct {
	WorldBound     float64
	MaxSpeed       float64
	ChatMaxLen     int
	ClockSkew      time.Duration
	IdentifierMax  int
	PetNicknameMax int
}

// DefaultLimits returns the bounds the production server runs with.
func DefaultLimits() Limits {
	return Limits{
		WorldBound:     50000,
		MaxSpeed:       1000,
		ChatMaxLen:     200,
		ClockSkew:      60 * time.Second,
		IdentifierMax:  100,
		PetNicknameMax: 24,
	}
}

// Validator checks inbound payloads against the fixed schema of their type.
type Validator struct {
	limits Limits
	now    func() time.Time
}

// New builds a validator with the given limits.
func New(limits Limits) *Validator {
	return &Validator{limits: limits, now: time.Now}
}

// NewWithClock is used by tests that need a deterministic server clock.
func NewWithClock(limits Limits, now func() time.Time) *Validator {
	return &Validator{limits: limits, now: now}
}

// Validate checks raw against the schema for messageType and returns the
// sanitized payload. It never panics out: an unexpected internal failure is
// converted into a generic system-error result so validation can never take
// the connection loop down.
func (v *Validator) Validate(messageType string, raw map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = invalid(fmt.Sprintf("validation system error: %v", r))
		}
	}()

	switch protocol.Normalize(messageType) {
	case protocol.TypeJoin:
		return v.validateJoin(raw)
	case protocol.TypePositionUpdate:
		return v.validatePosition(raw)
	case protocol.TypeHeartbeat:
		return v.validateHeartbeat(raw)
	case protocol.TypeChatMessage:
		return v.validateChat(raw)
	case protocol.TypeProjectileFired:
		return v.validateProjectile(raw)
	case protocol.TypeStartCombat, protocol.TypeStopCombat:
		return v.validateIdentifierOnly(raw, "npcId", true)
	case protocol.TypeRequestPlayerData,
		protocol.TypeSaveRequest,
		protocol.TypePlayerRespawn,
		protocol.TypeGlobalMonitor:
		// No payload beyond the envelope; everything else is dropped.
		return valid(map[string]any{})
	case protocol.TypeSkillUpgrade:
		return v.validateIdentifierOnly(raw, "skillId", true)
	case protocol.TypeRequestLeaderboard:
		return v.validateLeaderboard(raw)
	case protocol.TypeEquipItem, protocol.TypeSellItem:
		return v.validateIdentifierOnly(raw, "itemId", true)
	case protocol.TypeShipSkinAction:
		return v.validateShipSkin(raw)
	case protocol.TypeResourceCollect:
		return v.validateIdentifierOnly(raw, "resourceId", true)
	case protocol.TypeCraftItem:
		return v.validateIdentifierOnly(raw, "recipeId", true)
	case protocol.TypePortalUse:
		return v.validateIdentifierOnly(raw, "portalId", true)
	case protocol.TypeQuestProgressUpdate:
		return v.validateQuestProgress(raw)
	case protocol.TypeQuestAccept, protocol.TypeQuestAbandon:
		return v.validateIdentifierOnly(raw, "questId", true)
	default:
		return invalid(fmt.Sprintf("unknown message type %q", messageType))
	}
}

func (v *Validator) validateJoin(raw map[string]any) Result {
	errs := make([]string, 0, 2)
	sanitized := make(map[string]any, 5)

	authID, ok := identifierField(raw, "authId", v.limits.IdentifierMax)
	if !ok {
		errs = append(errs, "authId must be a bounded identifier")
	} else {
		sanitized["authId"] = authID
	}

	if nick, present := raw["nickname"]; present {
		s, ok := nick.(string)
		if !ok {
			errs = append(errs, "nickname must be a string")
		} else {
			clean := SanitizeText(s)
			if len(clean) == 0 || len(clean) > v.limits.PetNicknameMax {
				errs = append(errs, fmt.Sprintf("nickname length must be 1..%d", v.limits.PetNicknameMax))
			} else {
				sanitized["nickname"] = clean
			}
		}
	}

	if _, present := raw["mapId"]; present {
		mapID, ok := identifierField(raw, "mapId", v.limits.IdentifierMax)
		if !ok {
			errs = append(errs, "mapId must be a bounded identifier")
		} else {
			sanitized["mapId"] = mapID
		}
	}

	for _, key := range []string{"x", "y"} {
		if _, present := raw[key]; !present {
			continue
		}
		n, ok := finiteField(raw, key)
		if !ok || math.Abs(n) > v.limits.WorldBound {
			errs = append(errs, key+" must be a finite number within world bounds")
			continue
		}
		sanitized[key] = n
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return valid(sanitized)
}

func (v *Validator) validatePosition(raw map[string]any) Result {
	errs := make([]string, 0, 2)
	sanitized := make(map[string]any, 6)

	v.checkPose(raw, sanitized, &errs)

	if pet, present := raw["pet"]; present {
		petMap, ok := pet.(map[string]any)
		if !ok {
			errs = append(errs, "pet must be an object")
		} else {
			petSanitized := make(map[string]any, 4)
			v.checkPose(petMap, petSanitized, &errs)
			if nick, present := petMap["nickname"]; present {
				s, ok := nick.(string)
				clean := ""
				if ok {
					clean = SanitizeText(s)
				}
				if !ok || len(clean) == 0 || len(clean) > v.limits.PetNicknameMax {
					errs = append(errs, fmt.Sprintf("pet nickname length must be 1..%d", v.limits.PetNicknameMax))
				} else {
					petSanitized["nickname"] = clean
				}
			}
			sanitized["pet"] = petSanitized
		}
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return valid(sanitized)
}

// checkPose validates the x/y/rotation/velocity block shared by the primary
// position and the optional pet position.
func (v *Validator) checkPose(raw, sanitized map[string]any, errs *[]string) {
	for _, key := range []string{"x", "y"} {
		n, ok := finiteField(raw, key)
		if !ok || math.Abs(n) > v.limits.WorldBound {
			*errs = append(*errs, key+" must be a finite number within world bounds")
			continue
		}
		sanitized[key] = n
	}

	if _, present := raw["rotation"]; present {
		n, ok := finiteField(raw, "rotation")
		if !ok {
			*errs = append(*errs, "rotation must be a finite number")
		} else {
			sanitized["rotation"] = NormalizeRotation(n)
		}
	}

	for _, key := range []string{"velocityX", "velocityY"} {
		if _, present := raw[key]; !present {
			continue
		}
		n, ok := finiteField(raw, key)
		if !ok {
			*errs = append(*errs, key+" must be a finite number")
			continue
		}
		sanitized[key] = clamp(n, -v.limits.MaxSpeed, v.limits.MaxSpeed)
	}
}

func (v *Validator) validateHeartbeat(raw map[string]any) Result {
	ts, ok := finiteField(raw, "timestamp")
	if !ok || ts <= 0 {
		return invalid("timestamp must be a finite positive number")
	}
	skew := time.Duration(math.Abs(ts-float64(v.now().UnixMilli()))) * time.Millisecond
	if skew > v.limits.ClockSkew {
		return invalid("timestamp outside accepted clock skew")
	}
	return valid(map[string]any{"timestamp": ts})
}

func (v *Validator) validateChat(raw map[string]any) Result {
	content, ok := raw["content"].(string)
	if !ok {
		return invalid("content must be a string")
	}
	clean := SanitizeText(content)
	if len(clean) < 1 {
		return invalid("content must not be empty after sanitization")
	}
	if len(clean) > v.limits.ChatMaxLen {
		return invalid(fmt.Sprintf("content exceeds %d characters", v.limits.ChatMaxLen))
	}
	return valid(map[string]any{"content": clean})
}

func (v *Validator) validateProjectile(raw map[string]any) Result {
	errs := make([]string, 0, 2)
	sanitized := make(map[string]any, 3)

	npcID, ok := identifierField(raw, "npcId", v.limits.IdentifierMax)
	if !ok {
		errs = append(errs, "npcId must be a bounded identifier")
	} else {
		sanitized["npcId"] = npcID
	}

	for _, key := range []string{"x", "y"} {
		if _, present := raw[key]; !present {
			continue
		}
		n, ok := finiteField(raw, key)
		if !ok || math.Abs(n) > v.limits.WorldBound {
			errs = append(errs, key+" must be a finite number within world bounds")
			continue
		}
		sanitized[key] = n
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return valid(sanitized)
}

func (v *Validator) validateLeaderboard(raw map[string]any) Result {
	sanitized := make(map[string]any, 1)
	if _, present := raw["limit"]; present {
		n, ok := finiteField(raw, "limit")
		if !ok || n < 1 || n > 100 {
			return invalid("limit must be between 1 and 100")
		}
		sanitized["limit"] = math.Trunc(n)
	}
	return valid(sanitized)
}

func (v *Validator) validateShipSkin(raw map[string]any) Result {
	errs := make([]string, 0, 2)
	sanitized := make(map[string]any, 2)

	skinID, ok := identifierField(raw, "skinId", v.limits.IdentifierMax)
	if !ok {
		errs = append(errs, "skinId must be a bounded identifier")
	} else {
		sanitized["skinId"] = skinID
	}

	action, ok := raw["action"].(string)
	switch {
	case !ok:
		errs = append(errs, "action must be a string")
	case action != "equip" && action != "unequip" && action != "preview":
		errs = append(errs, "action must be one of equip, unequip, preview")
	default:
		sanitized["action"] = action
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return valid(sanitized)
}

func (v *Validator) validateQuestProgress(raw map[string]any) Result {
	errs := make([]string, 0, 2)
	sanitized := make(map[string]any, 2)

	questID, ok := identifierField(raw, "questId", v.limits.IdentifierMax)
	if !ok {
		errs = append(errs, "questId must be a bounded identifier")
	} else {
		sanitized["questId"] = questID
	}

	if _, present := raw["progress"]; present {
		n, ok := finiteField(raw, "progress")
		if !ok || n < 0 {
			errs = append(errs, "progress must be a finite non-negative number")
		} else {
			sanitized["progress"] = n
		}
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return valid(sanitized)
}

// validateIdentifierOnly covers the many message types whose whole payload is
// a single identifier-shaped field.
func (v *Validator) validateIdentifierOnly(raw map[string]any, key string, required bool) Result {
	if _, present := raw[key]; !present {
		if required {
			return invalid(key + " is required")
		}
		return valid(map[string]any{})
	}
	id, ok := identifierField(raw, key, v.limits.IdentifierMax)
	if !ok {
		return invalid(key + " must be a bounded identifier")
	}
	return valid(map[string]any{key: id})
}

func valid(sanitized map[string]any) Result {
	return Result{Valid: true, Sanitized: sanitized}
}

func invalid(errs ...string) Result {
	return Result{Valid: false, Errors: errs}
}

// finiteField fetches raw[key] as a finite float64, tolerating the integer
// shapes a JSON decoder or a test fixture may hand us.
func finiteField(raw map[string]any, key string) (float64, bool) {
	n, ok := toNumber(raw[key])
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
