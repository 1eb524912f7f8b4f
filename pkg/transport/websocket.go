package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/event"
	"github.com/davidarule/edge-c2-sim/pkg/log"
	"github.com/davidarule/edge-c2-sim/pkg/simclock"
	"github.com/davidarule/edge-c2-sim/pkg/util"
)

const clockBroadcastInterval = time.Second
const clientSendBuffer = 64

// CommandHandler processes one inbound client command, identified by
// its "cmd"/"type" field. msg holds the decoded JSON payload.
type CommandHandler func(msg map[string]any) error

// WebSocketAdapter serves the COP client protocol: on connect it sends
// a full snapshot, then streams entity_update/entity_batch/event
// frames and a once-a-second clock frame, while accepting inbound
// set_speed/pause/resume/snapshot commands plus any command registered
// with SetCommandHandler. "reset" has no built-in handling; it acts
// only if a handler is registered under that name.
type WebSocketAdapter struct {
	store             *entity.Store
	clock             *simclock.Clock
	addr              string
	scenarioDurationS float64
	auth              AuthConfig
	commandHandlers   map[string]CommandHandler
	lg                *log.Logger

	mu      util.LoggingMutex
	clients map[*wsClient]struct{}

	httpServer *http.Server
	cancelPump context.CancelFunc
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewWebSocketAdapter builds the adapter. addr is a "host:port" listen
// address (spec.md §6 CLI default port 8765). scenarioDurationS feeds
// the clock frame's scenario_progress field; zero disables it.
func NewWebSocketAdapter(store *entity.Store, clock *simclock.Clock, addr string, scenarioDurationS float64, auth AuthConfig, lg *log.Logger) *WebSocketAdapter {
	return &WebSocketAdapter{
		store:             store,
		clock:             clock,
		addr:              addr,
		scenarioDurationS: scenarioDurationS,
		auth:              auth,
		commandHandlers:   make(map[string]CommandHandler),
		clients:           make(map[*wsClient]struct{}),
		lg:                lg,
	}
}

// SetCommandHandler registers a handler for an extensible named
// command (e.g. "update_sidc", "restart") beyond the built-in
// set_speed/pause/resume/snapshot set.
func (w *WebSocketAdapter) SetCommandHandler(name string, h CommandHandler) {
	w.commandHandlers[name] = h
}

func (w *WebSocketAdapter) Name() string { return "websocket" }

// Connect starts the HTTP/WebSocket server and the once-a-second clock
// broadcaster, both on independent goroutines (spec.md §5's parallel
// transport region).
func (w *WebSocketAdapter) Connect() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", w.handleClient)
	w.httpServer = &http.Server{Addr: w.addr, Handler: mux}

	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("websocket: listen on %s: %w", w.addr, err)
	}

	go func() {
		if err := w.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if w.lg != nil {
				w.lg.Warn("websocket server stopped unexpectedly", "error", err)
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	w.cancelPump = cancel
	go w.broadcastClock(ctx)

	if w.lg != nil {
		w.lg.Info("websocket server started", "addr", w.addr)
	}
	return nil
}

// Disconnect stops the clock broadcaster and shuts the server down,
// closing every connected client.
func (w *WebSocketAdapter) Disconnect() error {
	if w.cancelPump != nil {
		w.cancelPump()
	}

	w.mu.Lock(w.lg)
	for c := range w.clients {
		close(c.send)
	}
	w.clients = make(map[*wsClient]struct{})
	w.mu.Unlock(w.lg)

	if w.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.httpServer.Shutdown(ctx)
}

// ClientCount returns the number of currently connected clients.
func (w *WebSocketAdapter) ClientCount() int {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)
	return len(w.clients)
}

func (w *WebSocketAdapter) handleClient(rw http.ResponseWriter, r *http.Request) {
	if w.auth.Enabled {
		if _, err := w.authenticateRequest(r); err != nil {
			http.Error(rw, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		if w.lg != nil {
			w.lg.Warn("websocket upgrade failed", "error", err)
		}
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}

	w.mu.Lock(w.lg)
	w.clients[c] = struct{}{}
	count := len(w.clients)
	w.mu.Unlock(w.lg)
	if w.lg != nil {
		w.lg.Info("websocket client connected", "clients", count)
	}

	go w.writePump(c)
	w.sendSnapshot(c)
	w.readPump(c)
}

func (w *WebSocketAdapter) authenticateRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(w.auth.CookieName)
	if err != nil {
		return "", err
	}
	return w.auth.ValidateSession(cookie.Value)
}

func (w *WebSocketAdapter) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (w *WebSocketAdapter) readPump(c *wsClient) {
	defer w.removeClient(c)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		w.handleMessage(raw)
	}
}

func (w *WebSocketAdapter) removeClient(c *wsClient) {
	w.mu.Lock(w.lg)
	if _, ok := w.clients[c]; ok {
		delete(w.clients, c)
		close(c.send)
	}
	count := len(w.clients)
	w.mu.Unlock(w.lg)
	if w.lg != nil {
		w.lg.Info("websocket client disconnected", "clients", count)
	}
}

func (w *WebSocketAdapter) handleMessage(raw []byte) {
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		if w.lg != nil {
			w.lg.Warn("invalid JSON from websocket client", "error", err)
		}
		return
	}

	msgType, _ := msg["cmd"].(string)
	if msgType == "" {
		msgType, _ = msg["type"].(string)
	}

	switch msgType {
	case "set_speed":
		speed, _ := msg["speed"].(float64)
		if speed <= 0 {
			speed = 1.0
		}
		w.clock.SetSpeed(speed)
	case "pause":
		w.clock.Pause()
	case "resume":
		w.clock.Resume()
	case "snapshot":
		// Handled per-client on connect; nothing to do for an explicit
		// re-request beyond what the client already has.
	default:
		if h, ok := w.commandHandlers[msgType]; ok {
			if err := h(msg); err != nil && w.lg != nil {
				w.lg.Warn("command handler failed", "command", msgType, "error", err)
			}
		} else if w.lg != nil {
			w.lg.Debug("unknown websocket command", "type", msgType)
		}
	}
}

func (w *WebSocketAdapter) sendSnapshot(c *wsClient) {
	entities := w.store.All()
	frame := map[string]any{"type": "snapshot", "entities": entities}
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (w *WebSocketAdapter) broadcast(payload []byte) {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)
	for c := range w.clients {
		select {
		case c.send <- payload:
		default:
			// Slow client; drop rather than block the registry per
			// spec.md §4.9.
		}
	}
}

func (w *WebSocketAdapter) broadcastClock(ctx context.Context) {
	ticker := time.NewTicker(clockBroadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := w.clock.Elapsed().Seconds()
			progress := 0.0
			if w.scenarioDurationS > 0 {
				progress = elapsed / w.scenarioDurationS
				if progress > 1 {
					progress = 1
				}
			}
			frame := map[string]any{
				"type":              "clock",
				"sim_time":          w.clock.SimTime(),
				"speed":             w.clock.Speed(),
				"running":           w.clock.IsRunning(),
				"scenario_progress": progress,
			}
			payload, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			w.broadcast(payload)
		}
	}
}

func (w *WebSocketAdapter) PushEntityUpdate(e entity.Entity) error {
	payload, err := json.Marshal(map[string]any{"type": "entity_update", "entity": e})
	if err != nil {
		return err
	}
	w.broadcast(payload)
	return nil
}

func (w *WebSocketAdapter) PushBulkUpdate(entities []entity.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	payload, err := json.Marshal(map[string]any{"type": "entity_batch", "entities": entities})
	if err != nil {
		return err
	}
	w.broadcast(payload)
	return nil
}

func (w *WebSocketAdapter) PushEvent(ev event.Event) error {
	payload, err := json.Marshal(map[string]any{"type": "event", "event": ev})
	if err != nil {
		return err
	}
	w.broadcast(payload)
	return nil
}
