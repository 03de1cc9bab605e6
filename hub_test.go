package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"starfield/server/internal/config"
	"starfield/server/internal/rewards"
)

func newTestHub(t *testing.T, cfg config.Config) (*Hub, *stubStore) {
	t.Helper()
	st := newStubStore()
	logger := zerolog.Nop()
	return newHub(cfg, &logger, st, rewards.Defaults()), st
}

func dialTestServer(t *testing.T, h *Hub, mapID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?map=" + mapID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestFullMapTurnsConnectionAway(t *testing.T) {
	cfg := config.Default()
	cfg.MapCapacity = 2
	h, _ := newTestHub(t, cfg)

	m := h.getOrCreateMap("alpha")
	now := time.Now()
	addTestPlayer(m, "c1", "1", now)
	addTestPlayer(m, "c2", "2", now)

	conn := dialTestServer(t, h, "alpha")

	msg := readJSON(t, conn)
	if msg["type"] != msgTypeError || msg["code"] != errCodeServerFull {
		t.Fatalf("expected a SERVER_FULL error, got %v", msg)
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("expected close code %d, got %v", websocket.CloseTryAgainLater, err)
	}

	if m.PlayerCount() != 2 {
		t.Fatalf("turned-away connection altered the registry")
	}
}

func TestInvalidMapIDRejectedBeforeUpgrade(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?map=" + "%3Bdrop")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRepeatedMalformedFramesCloseConnection(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	conn := dialTestServer(t, h, "alpha")

	for i := 0; i < maxMalformedFrames; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseProtocolError) {
		t.Fatalf("expected close code %d, got %v", websocket.CloseProtocolError, err)
	}
}

func TestJoinHeartbeatChatFlow(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	conn := dialTestServer(t, h, "alpha")

	if err := conn.WriteJSON(map[string]any{
		"type":     "join",
		"clientId": "test-client",
		"authId":   "auth:tester",
		"nickname": "Ace",
	}); err != nil {
		t.Fatalf("send join: %v", err)
	}

	ack := readJSON(t, conn)
	if ack["type"] != msgTypeJoinAck {
		t.Fatalf("expected %s, got %v", msgTypeJoinAck, ack)
	}
	if ack["mapId"] != "alpha" {
		t.Fatalf("mapId = %v, want alpha", ack["mapId"])
	}
	playerID, _ := ack["id"].(string)
	if playerID == "" {
		t.Fatalf("join ack carries no display id: %v", ack)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":      "heartbeat",
		"clientId":  "test-client",
		"timestamp": float64(time.Now().UnixMilli()),
	}); err != nil {
		t.Fatalf("send heartbeat: %v", err)
	}
	hb := readJSON(t, conn)
	if hb["type"] != msgTypeHeartbeatAck {
		t.Fatalf("expected %s, got %v", msgTypeHeartbeatAck, hb)
	}

	// Chat goes to everyone on the map, sender included, sanitized.
	if err := conn.WriteJSON(map[string]any{
		"type":     "chat_message",
		"clientId": "test-client",
		"content":  "<script>alert(1)</script>hi all",
	}); err != nil {
		t.Fatalf("send chat: %v", err)
	}
	chat := readJSON(t, conn)
	if chat["type"] != msgTypeChat {
		t.Fatalf("expected %s, got %v", msgTypeChat, chat)
	}
	if got, _ := chat["content"].(string); got != "alert(1)hi all" {
		t.Fatalf("chat content = %q, want sanitized text", got)
	}
	if chat["from"] != playerID {
		t.Fatalf("chat attributed to %v, want %v", chat["from"], playerID)
	}
}

func TestMessagesBeforeJoinAreRefused(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	conn := dialTestServer(t, h, "alpha")

	if err := conn.WriteJSON(map[string]any{
		"type":     "chat_message",
		"clientId": "test-client",
		"content":  "hello",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	msg := readJSON(t, conn)
	if msg["type"] != msgTypeError || msg["code"] != errCodeBadRequest {
		t.Fatalf("expected a join-required error, got %v", msg)
	}
}

func TestForbiddenFieldDropsMessage(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	conn := dialTestServer(t, h, "alpha")

	if err := conn.WriteJSON(map[string]any{
		"type":     "join",
		"clientId": "test-client",
		"authId":   "auth:tester",
	}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	readJSON(t, conn) // join ack

	// A position update asserting server-owned health is dropped at the
	// boundary; the follow-up heartbeat proves the connection survived and
	// nothing was applied.
	if err := conn.WriteJSON(map[string]any{
		"type":     "position_update",
		"clientId": "test-client",
		"x":        10.0, "y": 10.0,
		"health": 99999.0,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{
		"type":      "heartbeat",
		"clientId":  "test-client",
		"timestamp": float64(time.Now().UnixMilli()),
	}); err != nil {
		t.Fatalf("send heartbeat: %v", err)
	}

	msg := readJSON(t, conn)
	if msg["type"] != msgTypeHeartbeatAck {
		t.Fatalf("expected the heartbeat ack next, got %v", msg)
	}

	for _, m := range h.Maps() {
		if m.moves.Len() != 0 {
			t.Fatalf("dropped message still queued a move")
		}
	}
}

func TestUnknownTypeDroppedSilently(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	conn := dialTestServer(t, h, "alpha")

	if err := conn.WriteJSON(map[string]any{
		"type":     "grant_admin",
		"clientId": "test-client",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{
		"type":     "join",
		"clientId": "test-client",
		"authId":   "auth:tester",
	}); err != nil {
		t.Fatalf("send join: %v", err)
	}

	// The unknown type produced no reply at all; the join ack is the first
	// thing the client hears.
	msg := readJSON(t, conn)
	if msg["type"] != msgTypeJoinAck {
		t.Fatalf("expected the join ack first, got %v", msg)
	}
}

func TestMissingIdentityDroppedSilently(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	conn := dialTestServer(t, h, "alpha")

	// Well-formed JSON with a type but neither clientId nor playerId fails
	// the envelope rule before validation.
	if err := conn.WriteJSON(map[string]any{
		"type":   "join",
		"authId": "auth:anon",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{
		"type":     "join",
		"clientId": "test-client",
		"authId":   "auth:tester",
	}); err != nil {
		t.Fatalf("send join: %v", err)
	}

	msg := readJSON(t, conn)
	if msg["type"] != msgTypeJoinAck {
		t.Fatalf("expected the join ack first, got %v", msg)
	}
}

func TestHeartbeatTimeoutAnnouncesDeparture(t *testing.T) {
	h, st := newTestHub(t, config.Default())
	watcher := dialTestServer(t, h, "alpha")
	ghost := dialTestServer(t, h, "alpha")

	if err := watcher.WriteJSON(map[string]any{
		"type":     "join",
		"clientId": "watcher",
		"authId":   "auth:watcher",
	}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	readJSON(t, watcher) // join ack

	if err := ghost.WriteJSON(map[string]any{
		"type":     "join",
		"clientId": "ghost",
		"authId":   "auth:ghost",
	}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	ghostAck := readJSON(t, ghost)
	ghostID, _ := ghostAck["id"].(string)

	joined := readJSON(t, watcher)
	if joined["type"] != msgTypePlayerJoined {
		t.Fatalf("expected the join broadcast, got %v", joined)
	}

	maps := h.Maps()
	if len(maps) != 1 {
		t.Fatalf("got %d maps, want 1", len(maps))
	}
	m := maps[0]

	// Silence the ghost's heartbeat and tick past the timeout by hand.
	m.mu.Lock()
	for _, p := range m.players {
		if p.authID == "auth:ghost" {
			p.lastHeartbeat = time.Now().Add(-disconnectAfter - time.Second)
		}
	}
	m.mu.Unlock()
	m.Step(time.Now(), 1.0/15)

	// The survivor hears the departure instead of rendering a ghost ship.
	left := readJSON(t, watcher)
	if left["type"] != msgTypePlayerLeft {
		t.Fatalf("expected the departure broadcast, got %v", left)
	}
	if left["id"] != ghostID {
		t.Fatalf("departure for %v, want %v", left["id"], ghostID)
	}

	select {
	case authID := <-st.saved:
		if authID != "auth:ghost" {
			t.Fatalf("saved wrong record: %s", authID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pruned player's progress never saved")
	}
}

func TestLegacyEquipAliasDispatches(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	conn := dialTestServer(t, h, "alpha")

	if err := conn.WriteJSON(map[string]any{
		"type":     "join",
		"clientId": "test-client",
		"authId":   "auth:tester",
	}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	readJSON(t, conn)

	if err := conn.WriteJSON(map[string]any{
		"type":     "equip_iteam",
		"clientId": "test-client",
		"itemId":   "laser-mk2",
	}); err != nil {
		t.Fatalf("send equip: %v", err)
	}

	msg := readJSON(t, conn)
	if msg["type"] != msgTypePlayerData {
		t.Fatalf("legacy equip alias should answer with player data, got %v", msg)
	}
}

func TestValidationFailureLogThrottled(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	now := time.Now()

	allowed := 0
	for i := 0; i < diagnosticLogBudget*3; i++ {
		if h.validationLog.Allow(now) {
			allowed++
		}
	}
	if allowed != diagnosticLogBudget {
		t.Fatalf("allowed %d log lines, want %d", allowed, diagnosticLogBudget)
	}
	if got := h.validationLog.TakeSuppressed(); got != diagnosticLogBudget*2 {
		t.Fatalf("suppressed = %d, want %d", got, diagnosticLogBudget*2)
	}
}

func TestMapCounts(t *testing.T) {
	h, _ := newTestHub(t, config.Default())
	now := time.Now()
	addTestPlayer(h.getOrCreateMap("alpha"), "c1", "1", now)
	addTestPlayer(h.getOrCreateMap("alpha"), "c2", "2", now)
	addTestPlayer(h.getOrCreateMap("beta"), "c3", "3", now)

	counts := h.mapCounts()
	if counts["alpha"] != 2 || counts["beta"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestJSONShapes(t *testing.T) {
	data, err := json.Marshal(errorMessage{Type: msgTypeError, Code: errCodeServerFull, Reason: "full"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != "SERVER_FULL" {
		t.Fatalf("error code shape changed: %s", data)
	}
}
