package validate

import (
	"math"
	"strings"
	"testing"
	"time"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestValidateUnknownTypeFailsClosed(t *testing.T) {
	v := New(DefaultLimits())

	res := v.Validate("drop_table", map[string]any{"x": 1.0})
	if res.Valid {
		t.Fatalf("expected unknown type to be rejected")
	}
	if res.Sanitized != nil {
		t.Fatalf("rejected message must not carry a sanitized payload")
	}
	if len(res.Errors) == 0 {
		t.Fatalf("expected an error explaining the rejection")
	}
}

func TestValidatePositionBounds(t *testing.T) {
	v := New(DefaultLimits())

	tests := []struct {
		name  string
		raw   map[string]any
		valid bool
	}{
		{"inside bounds", map[string]any{"x": 100.0, "y": -250.5}, true},
		{"at positive bound", map[string]any{"x": 50000.0, "y": 0.0}, true},
		{"at negative bound", map[string]any{"x": 0.0, "y": -50000.0}, true},
		{"beyond positive bound", map[string]any{"x": 50000.1, "y": 0.0}, false},
		{"beyond negative bound", map[string]any{"x": 0.0, "y": -50001.0}, false},
		{"missing y", map[string]any{"x": 10.0}, false},
		{"nan x", map[string]any{"x": math.NaN(), "y": 0.0}, false},
		{"infinite y", map[string]any{"x": 0.0, "y": math.Inf(1)}, false},
		{"string coordinate", map[string]any{"x": "12", "y": 0.0}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := v.Validate("position_update", tc.raw)
			if res.Valid != tc.valid {
				t.Fatalf("valid=%v, want %v (errors: %v)", res.Valid, tc.valid, res.Errors)
			}
			if !tc.valid && res.Sanitized != nil {
				t.Fatalf("invalid result must not carry sanitized fields")
			}
		})
	}
}

func TestValidatePositionNormalizesRotation(t *testing.T) {
	v := New(DefaultLimits())

	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{2 * math.Pi, 0},
		{math.Pi / 2, math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
	}

	for _, tc := range tests {
		res := v.Validate("position_update", map[string]any{"x": 0.0, "y": 0.0, "rotation": tc.in})
		if !res.Valid {
			t.Fatalf("rotation %v rejected: %v", tc.in, res.Errors)
		}
		got := res.Sanitized["rotation"].(float64)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("rotation %v normalized to %v, want %v", tc.in, got, tc.want)
		}
		if got <= -math.Pi || got > math.Pi {
			t.Fatalf("normalized rotation %v outside (-pi, pi]", got)
		}
	}
}

func TestValidatePositionClampsVelocity(t *testing.T) {
	v := New(DefaultLimits())

	res := v.Validate("position_update", map[string]any{
		"x": 0.0, "y": 0.0,
		"velocityX": 5000.0,
		"velocityY": -5000.0,
	})
	if !res.Valid {
		t.Fatalf("unexpected rejection: %v", res.Errors)
	}
	if got := res.Sanitized["velocityX"].(float64); got != 1000 {
		t.Fatalf("velocityX = %v, want clamped to 1000", got)
	}
	if got := res.Sanitized["velocityY"].(float64); got != -1000 {
		t.Fatalf("velocityY = %v, want clamped to -1000", got)
	}
}

func TestValidatePositionDropsUnknownFields(t *testing.T) {
	v := New(DefaultLimits())

	res := v.Validate("position_update", map[string]any{
		"x": 1.0, "y": 2.0,
		"health":  9999.0,
		"credits": 1e9,
	})
	if !res.Valid {
		t.Fatalf("unexpected rejection: %v", res.Errors)
	}
	for _, key := range []string{"health", "credits"} {
		if _, ok := res.Sanitized[key]; ok {
			t.Fatalf("field %q leaked through sanitization", key)
		}
	}
}

func TestValidatePetPose(t *testing.T) {
	v := New(DefaultLimits())

	res := v.Validate("position_update", map[string]any{
		"x": 1.0, "y": 2.0,
		"pet": map[string]any{"x": 3.0, "y": 4.0, "nickname": "Bolt"},
	})
	if !res.Valid {
		t.Fatalf("unexpected rejection: %v", res.Errors)
	}
	pet := res.Sanitized["pet"].(map[string]any)
	if pet["nickname"] != "Bolt" {
		t.Fatalf("pet nickname = %v", pet["nickname"])
	}

	res = v.Validate("position_update", map[string]any{
		"x": 1.0, "y": 2.0,
		"pet": map[string]any{"x": 60000.0, "y": 4.0},
	})
	if res.Valid {
		t.Fatalf("pet outside world bounds must be rejected")
	}

	res = v.Validate("position_update", map[string]any{
		"x": 1.0, "y": 2.0,
		"pet": map[string]any{"x": 1.0, "y": 1.0, "nickname": strings.Repeat("a", 25)},
	})
	if res.Valid {
		t.Fatalf("pet nickname over 24 chars must be rejected")
	}
}

func TestValidateHeartbeatSkew(t *testing.T) {
	serverNow := time.UnixMilli(1_700_000_000_000)
	v := NewWithClock(DefaultLimits(), fixedClock(serverNow))

	tests := []struct {
		name   string
		offset time.Duration
		valid  bool
	}{
		{"exact", 0, true},
		{"ahead 59s", 59 * time.Second, true},
		{"behind 59s", -59 * time.Second, true},
		{"ahead 61s", 61 * time.Second, false},
		{"behind 61s", -61 * time.Second, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := float64(serverNow.Add(tc.offset).UnixMilli())
			res := v.Validate("heartbeat", map[string]any{"timestamp": ts})
			if res.Valid != tc.valid {
				t.Fatalf("valid=%v, want %v (errors: %v)", res.Valid, tc.valid, res.Errors)
			}
		})
	}

	if res := v.Validate("heartbeat", map[string]any{"timestamp": -5.0}); res.Valid {
		t.Fatalf("negative timestamp must be rejected")
	}
	if res := v.Validate("heartbeat", map[string]any{}); res.Valid {
		t.Fatalf("missing timestamp must be rejected")
	}
}

func TestValidateChat(t *testing.T) {
	v := New(DefaultLimits())

	res := v.Validate("chat_message", map[string]any{"content": "<script>alert(1)</script>hello"})
	if !res.Valid {
		t.Fatalf("unexpected rejection: %v", res.Errors)
	}
	got := res.Sanitized["content"].(string)
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("sanitized chat still contains angle brackets: %q", got)
	}
	if got != "alert(1)hello" {
		t.Fatalf("sanitized chat = %q", got)
	}

	if res := v.Validate("chat_message", map[string]any{"content": "<b></b>"}); res.Valid {
		t.Fatalf("chat that sanitizes to empty must be rejected")
	}
	if res := v.Validate("chat_message", map[string]any{"content": strings.Repeat("x", 201)}); res.Valid {
		t.Fatalf("chat over 200 chars must be rejected")
	}
	if res := v.Validate("chat_message", map[string]any{"content": 42.0}); res.Valid {
		t.Fatalf("non-string chat content must be rejected")
	}
}

func TestSanitizeTextFixedPoint(t *testing.T) {
	inputs := []string{
		"plain text",
		"<script>alert('x')</script>",
		"a < b > c",
		"tabs\tand\nnewlines",
		"  padded  ",
		"<<nested>>",
	}
	for _, in := range inputs {
		once := SanitizeText(in)
		twice := SanitizeText(once)
		if once != twice {
			t.Fatalf("SanitizeText not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.ContainsAny(once, "<>") {
			t.Fatalf("sanitized output still contains brackets: %q", once)
		}
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"player:42", true},
		{"map-1", true},
		{"skill_a", true},
		{"ABCdef123", true},
		{"", false},
		{"has space", false},
		{"semi;colon", false},
		{"quote'", false},
		{strings.Repeat("a", 100), true},
		{strings.Repeat("a", 101), false},
	}
	for _, tc := range tests {
		if got := ValidIdentifier(tc.in, 100); got != tc.valid {
			t.Fatalf("ValidIdentifier(%q) = %v, want %v", tc.in, got, tc.valid)
		}
	}
}

func TestValidateLegacyEquipAlias(t *testing.T) {
	v := New(DefaultLimits())

	res := v.Validate("equip_iteam", map[string]any{"itemId": "laser-mk2"})
	if !res.Valid {
		t.Fatalf("legacy alias rejected: %v", res.Errors)
	}
	if res.Sanitized["itemId"] != "laser-mk2" {
		t.Fatalf("sanitized = %v", res.Sanitized)
	}
}

func TestValidateLeaderboardLimit(t *testing.T) {
	v := New(DefaultLimits())

	if res := v.Validate("request_leaderboard", map[string]any{}); !res.Valid {
		t.Fatalf("missing limit should default, got %v", res.Errors)
	}
	if res := v.Validate("request_leaderboard", map[string]any{"limit": 10.0}); !res.Valid {
		t.Fatalf("limit 10 rejected: %v", res.Errors)
	}
	if res := v.Validate("request_leaderboard", map[string]any{"limit": 0.0}); res.Valid {
		t.Fatalf("limit 0 must be rejected")
	}
	if res := v.Validate("request_leaderboard", map[string]any{"limit": 101.0}); res.Valid {
		t.Fatalf("limit 101 must be rejected")
	}
}

func TestValidateShipSkinAction(t *testing.T) {
	v := New(DefaultLimits())

	for _, action := range []string{"equip", "unequip", "preview"} {
		res := v.Validate("ship_skin_action", map[string]any{"skinId": "nebula", "action": action})
		if !res.Valid {
			t.Fatalf("action %q rejected: %v", action, res.Errors)
		}
	}
	if res := v.Validate("ship_skin_action", map[string]any{"skinId": "nebula", "action": "steal"}); res.Valid {
		t.Fatalf("unknown skin action must be rejected")
	}
}

func TestValidateJoin(t *testing.T) {
	v := New(DefaultLimits())

	res := v.Validate("join", map[string]any{"authId": "auth:abc123", "nickname": "  Nova  "})
	if !res.Valid {
		t.Fatalf("unexpected rejection: %v", res.Errors)
	}
	if res.Sanitized["nickname"] != "Nova" {
		t.Fatalf("nickname not trimmed: %v", res.Sanitized["nickname"])
	}

	if res := v.Validate("join", map[string]any{}); res.Valid {
		t.Fatalf("join without authId must be rejected")
	}
	if res := v.Validate("join", map[string]any{"authId": "bad id!"}); res.Valid {
		t.Fatalf("authId outside identifier charset must be rejected")
	}
}

func TestValidateRecoversFromPanic(t *testing.T) {
	v := New(DefaultLimits())

	// Whatever happens inside a per-type validator, a nil payload must come
	// back as a rejection, never a crash.
	res := v.Validate("position_update", nil)
	if res.Valid {
		t.Fatalf("nil payload must be rejected")
	}
	if res.Sanitized != nil {
		t.Fatalf("rejection must not carry sanitized fields")
	}
}
