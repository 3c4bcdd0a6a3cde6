// Package ws exposes the live subscription feed over a websocket. One
// connection equals one tracked session: presence is marked on upgrade
// and released when the socket closes. Within a connection the client
// subscribes and unsubscribes to (kind, entity) feeds with JSON frames.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rampagelabs/armory/internal/domain/feedback"
	"github.com/rampagelabs/armory/pkg/logger"
	"github.com/rampagelabs/armory/pkg/metrics"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings go out at pingPeriod, below pongWait.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024

	sendBuffer = 32
)

// Dependencies required by the websocket handler.
type Dependencies interface {
	// Subscribe opens a live merged-view feed for one (entity, kind).
	Subscribe(ctx context.Context, device, entity string, kind feedback.Kind) (<-chan any, func(), error)

	// View returns the current merged view, sent as the initial frame.
	View(ctx context.Context, device, entity string, kind feedback.Kind) (any, error)

	// Track registers a live session; the returned teardown ends it.
	Track(ctx context.Context, device string) (func(), error)
}

// clientFrame is what the browser sends.
type clientFrame struct {
	Action string `json:"action"`
	Kind   string `json:"kind"`
	Entity string `json:"entity"`
}

// serverFrame is what the browser receives.
type serverFrame struct {
	Type    string `json:"type"`
	Kind    string `json:"kind,omitempty"`
	Entity  string `json:"entity,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler upgrades and serves websocket connections.
type Handler struct {
	deps        Dependencies
	upgrader    websocket.Upgrader
	logger      logger.Logger
	connections atomic.Int64
}

// NewHandler creates a websocket handler. Origin checks are delegated to
// the CORS layer in front of the mux.
func NewHandler(deps Dependencies, log logger.Logger) *Handler {
	return &Handler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// HandleWS handles GET /ws?device=ID requests.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	if device == "" {
		http.Error(w, "missing device query parameter", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	untrack, err := h.deps.Track(r.Context(), device)
	if err != nil {
		h.logger.Error(r.Context(), "presence track failed", logger.Error(err))
		_ = conn.Close()
		return
	}

	metrics.UpdateWSConnections(int(h.connections.Add(1)))
	c := &client{
		handler: h,
		deps:    h.deps,
		conn:    conn,
		device:  device,
		send:    make(chan serverFrame, sendBuffer),
		subs:    make(map[string]func()),
		done:    make(chan struct{}),
		untrack: untrack,
		logger:  h.logger,
	}
	go c.writePump()
	go c.readPump()
}

// client is one connected browser session.
type client struct {
	handler *Handler
	deps    Dependencies
	conn    *websocket.Conn
	device  string
	send    chan serverFrame
	logger  logger.Logger

	mu   sync.Mutex
	subs map[string]func()

	done    chan struct{}
	once    sync.Once
	untrack func()
}

func subKey(kind feedback.Kind, entity string) string {
	return string(kind) + "/" + entity
}

// close tears down the session exactly once: all subscriptions cancelled,
// presence released, socket closed.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		for _, cancel := range c.subs {
			cancel()
		}
		c.subs = nil
		c.mu.Unlock()
		c.untrack()
		_ = c.conn.Close()
		metrics.UpdateWSConnections(int(c.handler.connections.Add(-1)))
	})
}

func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame clientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug(context.Background(), "websocket read failed", logger.Error(err))
			}
			return
		}
		c.handleFrame(frame)
	}
}

func (c *client) handleFrame(frame clientFrame) {
	kind, err := feedback.ParseKind(frame.Kind)
	if err != nil {
		c.reply(serverFrame{Type: "error", Message: err.Error()})
		return
	}
	switch frame.Action {
	case "subscribe":
		c.subscribe(kind, frame.Entity)
	case "unsubscribe":
		c.unsubscribe(kind, frame.Entity)
	default:
		c.reply(serverFrame{Type: "error", Message: "unknown action: " + frame.Action})
	}
}

// subscribe opens the feed and pushes the current view immediately so the
// client renders without waiting for the first change.
func (c *client) subscribe(kind feedback.Kind, entity string) {
	key := subKey(kind, entity)
	c.mu.Lock()
	if c.subs == nil {
		c.mu.Unlock()
		return
	}
	if _, exists := c.subs[key]; exists {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ctx := context.Background()
	views, cancel, err := c.deps.Subscribe(ctx, c.device, entity, kind)
	if err != nil {
		c.reply(serverFrame{Type: "error", Message: err.Error()})
		return
	}

	c.mu.Lock()
	if c.subs == nil {
		c.mu.Unlock()
		cancel()
		return
	}
	c.subs[key] = cancel
	c.mu.Unlock()

	if view, err := c.deps.View(ctx, c.device, entity, kind); err == nil {
		c.reply(serverFrame{Type: "update", Kind: string(kind), Entity: entity, Data: view})
	}

	go func() {
		for view := range views {
			c.reply(serverFrame{Type: "update", Kind: string(kind), Entity: entity, Data: view})
		}
	}()
}

func (c *client) unsubscribe(kind feedback.Kind, entity string) {
	key := subKey(kind, entity)
	c.mu.Lock()
	cancel, ok := c.subs[key]
	if ok {
		delete(c.subs, key)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// reply queues a frame without blocking; a stalled client drops frames
// rather than wedging the feed goroutines.
func (c *client) reply(frame serverFrame) {
	select {
	case c.send <- frame:
	case <-c.done:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload, err := json.Marshal(frame)
			if err != nil {
				c.logger.Warn(context.Background(), "frame marshal failed", logger.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
