// Command protocolschema emits a JSON Schema document describing every
// inbound wire payload, keyed by message type. Client teams validate their
// encoders against it instead of reading the server source.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"starfield/server/internal/protocol"
)

// contract is the emitted document: the shared envelope plus the sanitized
// payload shape of each catalog type that carries one.
type contract struct {
	Schema   string                        `json:"$schema"`
	Title    string                        `json:"title"`
	Envelope *jsonschema.Schema            `json:"envelope"`
	Payloads map[string]*jsonschema.Schema `json:"payloads"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildContract()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildContract() contract {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	payloads := map[string]any{
		protocol.TypeJoin:                protocol.JoinPayload{},
		protocol.TypePositionUpdate:      protocol.PositionPayload{},
		protocol.TypeHeartbeat:           protocol.HeartbeatPayload{},
		protocol.TypeChatMessage:         protocol.ChatPayload{},
		protocol.TypeProjectileFired:     protocol.ProjectilePayload{},
		protocol.TypeStartCombat:         protocol.StartCombatPayload{},
		protocol.TypeStopCombat:          protocol.StopCombatPayload{},
		protocol.TypeSkillUpgrade:        protocol.SkillUpgradePayload{},
		protocol.TypeRequestLeaderboard:  protocol.LeaderboardPayload{},
		protocol.TypeEquipItem:           protocol.EquipItemPayload{},
		protocol.TypeSellItem:            protocol.SellItemPayload{},
		protocol.TypeShipSkinAction:      protocol.ShipSkinPayload{},
		protocol.TypeResourceCollect:     protocol.ResourceCollectPayload{},
		protocol.TypeCraftItem:           protocol.CraftPayload{},
		protocol.TypePortalUse:           protocol.PortalPayload{},
		protocol.TypeQuestProgressUpdate: protocol.QuestProgressPayload{},
		protocol.TypeQuestAccept:         protocol.QuestAcceptPayload{},
		protocol.TypeQuestAbandon:        protocol.QuestAbandonPayload{},
	}

	doc := contract{
		Schema:   "https://json-schema.org/draft/2020-12/schema",
		Title:    "Starfield Inbound Protocol",
		Envelope: reflectBare(&reflector, protocol.Envelope{}),
		Payloads: make(map[string]*jsonschema.Schema, len(payloads)),
	}
	for _, msgType := range protocol.CatalogTypes() {
		payload, ok := payloads[msgType]
		if !ok {
			// Types with no payload beyond the envelope.
			continue
		}
		doc.Payloads[msgType] = reflectBare(&reflector, payload)
	}
	return doc
}

// reflectBare reflects a payload struct and strips the per-schema $schema
// marker so the document carries it once at the top level.
func reflectBare(r *jsonschema.Reflector, v any) *jsonschema.Schema {
	s := r.Reflect(v)
	s.Version = ""
	return s
}

func writeSchema(outPath string, doc contract) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
