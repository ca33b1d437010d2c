// ABOUTME: Registry of live client connections keyed by connection id
// ABOUTME: Sending to a gone or unwritable connection is a logged no-op

package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is one live client connection. Writes are serialized through
// writeMu; gorilla connections allow only one concurrent writer.
type Conn struct {
	ID        string
	CreatedAt time.Time

	ws      *websocket.Conn
	writeMu sync.Mutex
}

// defaultWriteTimeout bounds a single frame write. A stalled client
// must degrade to a dropped frame, never block the run streaming to it.
const defaultWriteTimeout = 10 * time.Second

// Registry tracks live connections so streaming callbacks can address
// frames to the connection that issued the chat.
type Registry struct {
	mu           sync.RWMutex
	conns        map[string]*Conn
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:        make(map[string]*Conn),
		writeTimeout: defaultWriteTimeout,
		logger:       logger.With("component", "relay"),
	}
}

// Add registers a websocket connection under a fresh id.
func (r *Registry) Add(ws *websocket.Conn) *Conn {
	conn := &Conn{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		ws:        ws,
	}
	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.mu.Unlock()
	r.logger.Info("client connected", "connection_id", conn.ID, "total", r.Count())
	return conn
}

// Remove drops a connection from the registry. Idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if ok {
		r.logger.Info("client disconnected", "connection_id", id, "total", r.Count())
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send delivers one frame to the given connection. A missing id or a
// dead socket is logged and swallowed; streaming callbacks must never
// fail because a client went away mid-run.
func (r *Registry) Send(id, frameType string, payload any) {
	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		r.logger.Debug("dropping frame for unknown connection",
			"connection_id", id, "frame_type", frameType)
		return
	}

	envelope := struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}{Type: frameType, Payload: payload}

	conn.writeMu.Lock()
	err := conn.ws.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	if err == nil {
		err = conn.ws.WriteJSON(envelope)
	}
	conn.writeMu.Unlock()
	if err != nil {
		r.logger.Warn("dropping frame for unwritable connection",
			"connection_id", id, "frame_type", frameType, "error", err)
	}
}
