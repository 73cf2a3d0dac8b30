// Package spectate streams game log entries to spectators over websockets.
package spectate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lorenzotomasdiez/werewolf/internal/gamelog"
)

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan gamelog.Entry
	once sync.Once
}

func (c *client) stop() { c.once.Do(func() { close(c.send) }) }

// Hub keeps the history of a game and fans new entries out to connected
// spectators. It implements gamelog.Sink; Write never blocks on a slow
// spectator, which is disconnected instead.
type Hub struct {
	includePrivate bool
	logger         *zap.Logger
	upgrader       websocket.Upgrader

	mu      sync.Mutex
	history []gamelog.Entry
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewHub creates a hub. Private entries are only exposed when
// includePrivate is set.
func NewHub(includePrivate bool, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		includePrivate: includePrivate,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) visible(e gamelog.Entry) bool { return e.Public || h.includePrivate }

// Write records e and pushes it to every spectator.
func (h *Hub) Write(e gamelog.Entry) {
	if !h.visible(e) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.history = append(h.history, e)
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			h.logger.Warn("spectator too slow, disconnecting", zap.String("remote", c.conn.RemoteAddr().String()))
			delete(h.clients, c)
			c.stop()
		}
	}
}

// History returns the visible entries so far.
func (h *Hub) History() []gamelog.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]gamelog.Entry, len(h.history))
	copy(out, h.history)
	return out
}

// Handler serves /ws and /api/logs.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.serveWS)
	mux.HandleFunc("GET /api/logs", h.serveLogs)
	return mux
}

func (h *Hub) serveLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.History()); err != nil {
		h.logger.Warn("writing log history", zap.Error(err))
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan gamelog.Entry, clientBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	backlog := make([]gamelog.Entry, len(h.history))
	copy(backlog, h.history)
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()
	h.logger.Debug("spectator connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("backlog", len(backlog)))

	go h.writeLoop(c, backlog)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client, backlog []gamelog.Entry) {
	defer h.wg.Done()
	defer c.conn.Close()

	write := func(e gamelog.Entry) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteJSON(e)
	}
	for _, e := range backlog {
		if err := write(e); err != nil {
			h.drop(c)
			return
		}
	}
	for e := range c.send {
		if err := write(e); err != nil {
			h.drop(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over"))
}

// readLoop only watches for the spectator going away.
func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

// Close disconnects every spectator and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// ListenAndServe serves the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("spectate: %w", err)
	}
	return h.Serve(ctx, ln)
}

// Serve serves the hub on ln until ctx is done. ln is closed on return.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return fmt.Errorf("spectate: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("spectate: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("spectate: %w", err)
	}
	return nil
}
