package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 7 * time.Second
	readWait     = 70 * time.Second
	pingInterval = 25 * time.Second
	sendBuffer   = 64
)

// SnapshotFunc returns the current floor state sent on connect and on "sync" requests.
type SnapshotFunc func(ctx context.Context) (any, error)

// Hub pushes events to connected staff screens over websockets. Each client has its own
// send buffer and writer goroutine; a client whose buffer is full is disconnected.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*hubClient]struct{}
	snapshot SnapshotFunc
	log      *zap.Logger
	upgrader websocket.Upgrader
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newHubClient(conn *websocket.Conn) *hubClient {
	return &hubClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func NewHub(snapshot SnapshotFunc, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:  map[*hubClient]struct{}{},
		snapshot: snapshot,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Hub) Name() string { return "websocket" }

func (h *Hub) add(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// evict forgets the client and closes its connection. Safe to call more than once.
func (h *Hub) evict(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

func (h *Hub) list() []*hubClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Clients returns the number of connected screens.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues env for every client without waiting on any socket.
func (h *Hub) Send(_ context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	for _, c := range h.list() {
		if !c.enqueue(raw) {
			h.log.Warn("websocket client too slow, disconnecting", zap.String("remote", c.conn.RemoteAddr().String()))
			h.evict(c)
		}
	}
	return nil
}

// enqueue reports false when the client's buffer is full.
func (c *hubClient) enqueue(raw []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- raw:
		return true
	default:
		return false
	}
}

func (c *hubClient) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump is the only writer on the connection.
func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.stop()
	}()

	for {
		select {
		case <-c.done:
			return
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) queueSnapshot(ctx context.Context, c *hubClient, typ string) {
	msg := map[string]any{"type": typ, "at": time.Now().UTC()}
	if h.snapshot != nil {
		data, err := h.snapshot(ctx)
		if err != nil {
			h.log.Warn("websocket snapshot failed", zap.Error(err))
			return
		}
		msg["data"] = data
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("websocket snapshot encode failed", zap.Error(err))
		return
	}
	if !c.enqueue(raw) {
		h.evict(c)
	}
}

// ServeHTTP upgrades the request and reads from the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newHubClient(conn)
	defer h.evict(client)

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	go client.writePump()
	// Registered after the hello is queued so that it is always the first message.
	h.queueSnapshot(r.Context(), client, "hello")
	h.add(client)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if len(raw) == 0 {
			continue
		}
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(msg.Type)) {
		case "sync", "refresh":
			h.queueSnapshot(r.Context(), client, "snapshot")
		}
	}
}
