package intent

import (
	"strings"
	"testing"

	"starfield/server/internal/protocol"
)

func TestCheckRejectsForbiddenFields(t *testing.T) {
	forbidden := []string{"health", "maxHealth", "shield", "maxShield", "inventory", "upgrades", "quests"}

	for _, field := range forbidden {
		for _, msgType := range []string{protocol.TypePositionUpdate, protocol.TypeJoin, "totally_unknown"} {
			d := Check(msgType, map[string]any{field: 1.0})
			if d.Allowed {
				t.Fatalf("field %q on type %q must be rejected", field, msgType)
			}
			if !strings.Contains(d.Reason, field) {
				t.Fatalf("reason should name the field, got %q", d.Reason)
			}
		}
	}
}

func TestCheckForbiddenFieldAnyValueType(t *testing.T) {
	values := []any{nil, "full", 100.0, map[string]any{}, []any{1, 2}}
	for _, v := range values {
		d := Check(protocol.TypePositionUpdate, map[string]any{"inventory": v})
		if d.Allowed {
			t.Fatalf("inventory with value %#v must be rejected", v)
		}
	}
}

func TestCheckUnknownTypeRejected(t *testing.T) {
	d := Check("grant_admin", map[string]any{})
	if d.Allowed {
		t.Fatalf("unknown message type must be rejected")
	}
	if !strings.Contains(d.Reason, "grant_admin") {
		t.Fatalf("reason should name the type, got %q", d.Reason)
	}
	// The rejection lists the allowed set so operators can debug clients.
	if !strings.Contains(d.Reason, protocol.TypeJoin) {
		t.Fatalf("reason should list allowed types, got %q", d.Reason)
	}
}

func TestCheckAllowsCatalogTypes(t *testing.T) {
	for _, msgType := range protocol.CatalogTypes() {
		d := Check(msgType, map[string]any{"x": 1.0})
		if !d.Allowed {
			t.Fatalf("catalog type %q rejected: %s", msgType, d.Reason)
		}
	}
}

func TestCheckLegacyAliasAllowed(t *testing.T) {
	d := Check("equip_iteam", map[string]any{"itemId": "laser"})
	if !d.Allowed {
		t.Fatalf("legacy equip alias rejected: %s", d.Reason)
	}
}
