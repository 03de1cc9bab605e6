package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"starfield/server/internal/anticheat"
	"starfield/server/internal/config"
	"starfield/server/internal/intent"
	"starfield/server/internal/protocol"
	"starfield/server/internal/ratelimit"
	"starfield/server/internal/rewards"
	"starfield/server/internal/store"
	"starfield/server/internal/validate"
)

// Hub owns the socket lifecycle and the map registry. Every inbound message
// passes structural check, schema validation, and boundary enforcement before
// a handler sees it.
type Hub struct {
	cfg       config.Config
	log       *zerolog.Logger
	store     store.PlayerStore
	rules     *rewards.Rules
	validator *validate.Validator
	cheat     *anticheat.Checker
	upgrader  websocket.Upgrader

	mu     sync.Mutex
	maps   map[string]*MapServer
	runCtx context.Context // nil until StartSimulations; new maps then tick immediately

	// Validation failures and boundary violations throttle independently so
	// a flood of one cannot silence the other.
	validationLog *ratelimit.Limiter
	securityLog   *ratelimit.Limiter

	nextDisplayID atomic.Int64
}

func newHub(cfg config.Config, logger *zerolog.Logger, st store.PlayerStore, rules *rewards.Rules) *Hub {
	limits := validate.DefaultLimits()
	limits.WorldBound = cfg.WorldBound
	limits.MaxSpeed = cfg.MaxSpeed

	h := &Hub{
		cfg:       cfg,
		log:       logger,
		store:     st,
		rules:     rules,
		validator: validate.New(limits),
		cheat:     anticheat.New(cfg.MaxSpeed, cfg.SpeedTolerance),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		maps:          make(map[string]*MapServer),
		validationLog: ratelimit.New(diagnosticLogBudget, diagnosticLogWindow),
		securityLog:   ratelimit.New(diagnosticLogBudget, diagnosticLogWindow),
	}
	h.nextDisplayID.Store(time.Now().Unix() % 1_000_000)
	return h
}

// getOrCreateMap returns the simulation instance for mapID, creating and
// seeding it on first use.
func (h *Hub) getOrCreateMap(mapID string) *MapServer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.maps[mapID]; ok {
		return m
	}
	m := newMapServer(mapID, h.cfg, h.log, h.store, h.rules, h.cheat, time.Now().UnixNano())
	h.maps[mapID] = m
	if h.runCtx != nil {
		go m.RunSimulation(h.runCtx)
	}
	return m
}

// StartSimulations begins ticking every existing map and arranges for maps
// created later to tick as soon as they exist. Loops stop when ctx is done.
func (h *Hub) StartSimulations(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runCtx = ctx
	for _, m := range h.maps {
		go m.RunSimulation(ctx)
	}
}

// WaitSaves blocks until every save dispatched by any map has completed.
// Called during shutdown after the listener has drained.
func (h *Hub) WaitSaves() {
	for _, m := range h.Maps() {
		m.WaitSaves()
	}
}

// Maps returns the live map instances.
func (h *Hub) Maps() []*MapServer {
	h.mu.Lock()
	defer h.mu.Unlock()
	maps := make([]*MapServer, 0, len(h.maps))
	for _, m := range h.maps {
		maps = append(maps, m)
	}
	return maps
}

func (h *Hub) mapCounts() map[string]int {
	h.mu.Lock()
	maps := make([]*MapServer, 0, len(h.maps))
	for _, m := range h.maps {
		maps = append(maps, m)
	}
	h.mu.Unlock()

	counts := make(map[string]int, len(maps))
	for _, m := range maps {
		counts[m.id] = m.PlayerCount()
	}
	return counts
}

// subscriber wraps one websocket with a write mutex so the tick loop and the
// handler path never interleave frames.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *subscriber) sendJSON(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.send(data)
}

func (s *subscriber) closeWith(code int, reason string) {
	s.mu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	s.mu.Unlock()
	s.conn.Close()
}

func (s *subscriber) close() {
	s.conn.Close()
}

// connection is one live transport session: an ephemeral routing id plus, once
// join completes, the player it points at. It owns no simulation state.
type connection struct {
	id        string
	sub       *subscriber
	hub       *Hub
	mapSrv    *MapServer
	player    *playerState
	malformed int
}

// HandleWS upgrades the transport and runs the connection's read loop until
// it closes. Admission is checked before the session is serviced: a full map
// turns the connection away with a distinct close code so clients can tell
// "full" from generic failure.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	mapID := r.URL.Query().Get("map")
	if mapID == "" {
		mapID = defaultMapID
	}
	if !validate.ValidIdentifier(mapID, 100) {
		http.Error(w, "invalid map id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := &subscriber{conn: conn}
	mapSrv := h.getOrCreateMap(mapID)

	if mapSrv.PlayerCount() >= h.cfg.MapCapacity {
		sub.sendJSON(errorMessage{Type: msgTypeError, Code: errCodeServerFull, Reason: "map is at capacity, try later"})
		sub.closeWith(websocket.CloseTryAgainLater, errCodeServerFull)
		return
	}

	c := &connection{
		id:     uuid.NewString(),
		sub:    sub,
		hub:    h,
		mapSrv: mapSrv,
	}
	h.readLoop(c)
}

// readLoop processes inbound frames for one connection. Per-message errors
// are converted into drops or, for protocol-fatal conditions, a close of this
// one connection; nothing escapes to the process.
func (h *Hub) readLoop(c *connection) {
	defer h.disconnect(c)

	c.sub.conn.SetReadLimit(maxMessageBytes)

	for {
		_, payload, err := c.sub.conn.ReadMessage()
		if err != nil {
			return
		}

		var raw map[string]any
		if err := json.Unmarshal(payload, &raw); err != nil {
			// Malformed input is dropped silently; repetition is
			// protocol-fatal.
			c.malformed++
			if c.malformed >= maxMalformedFrames {
				c.sub.closeWith(websocket.CloseProtocolError, "too many malformed frames")
				return
			}
			continue
		}
		c.malformed = 0

		var env protocol.Envelope
		_ = json.Unmarshal(payload, &env)
		msgType := env.Type
		if msgType == "" || !env.HasIdentity() {
			continue
		}

		result := h.validator.Validate(msgType, raw)
		if !result.Valid {
			h.logValidationFailure(c, msgType, result.Errors)
			continue
		}

		decision := intent.Check(msgType, raw)
		if !decision.Allowed {
			h.logSecurityViolation(c, msgType, decision.Reason)
			continue
		}

		h.dispatch(c, protocol.Normalize(msgType), result.Sanitized)
	}
}

func (h *Hub) disconnect(c *connection) {
	if c.player != nil {
		c.mapSrv.RemovePlayer(c.id)
		c.player = nil
	}
	c.sub.close()
}

func (h *Hub) logValidationFailure(c *connection, msgType string, errs []string) {
	now := time.Now()
	if !h.validationLog.Allow(now) {
		return
	}
	h.log.Warn().
		Str("conn", c.id).
		Str("msg_type", msgType).
		Strs("errors", errs).
		Int("suppressed", h.validationLog.TakeSuppressed()).
		Msg("validation failure")
}

func (h *Hub) logSecurityViolation(c *connection, msgType, reason string) {
	now := time.Now()
	if !h.securityLog.Allow(now) {
		return
	}
	h.log.Warn().
		Str("conn", c.id).
		Str("msg_type", msgType).
		Str("reason", reason).
		Int("suppressed", h.securityLog.TakeSuppressed()).
		Msg("boundary violation")
}
