// Package intent enforces the trust boundary between client-supplied and
// server-authoritative state. Where the validator asks "is this data
// well-formed", this package asks "is the client allowed to say this at all";
// both checks must pass before a handler runs.
package intent

import (
	"fmt"
	"strings"

	"starfield/server/internal/protocol"
)

// forbiddenFields is the fixed list of server-owned fields a client may never
// assert. Presence of any of them anywhere in a payload rejects the message
// outright, regardless of type.
var forbiddenFields = []string{
	"health",
	"maxHealth",
	"shield",
	"maxShield",
	"inventory",
	"upgrades",
	"quests",
}

// Decision is the outcome of a boundary check. Reason is set only when the
// message is not allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

// Check applies the forbidden-field list and the inbound-catalog allow-list
// to one message.
func Check(messageType string, raw map[string]any) Decision {
	for _, field := range forbiddenFields {
		if _, present := raw[field]; present {
			return Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("field %q is server-authoritative and may not be set by clients", field),
			}
		}
	}

	if !protocol.Known(messageType) {
		return Decision{
			Allowed: false,
			Reason: fmt.Sprintf("message type %q is not permitted; allowed types: %s",
				messageType, strings.Join(protocol.CatalogTypes(), ", ")),
		}
	}

	return Decision{Allowed: true}
}
