// Package hud serves slider state to on-screen display clients over
// WebSocket.
//
// Messages are JSON text frames with an envelope: {type, ts, data}. A client
// receives "state_init" with the last known state right after connecting and
// "slider_changed" for every update after that. Slow clients are
// disconnected when their send buffer fills.
package hud

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// MessageStateInit carries the last known state to a new client.
	MessageStateInit = "state_init"
	// MessageSliderChanged carries every later update.
	MessageSliderChanged = "slider_changed"

	// DefaultPath is the WebSocket endpoint when none is configured.
	DefaultPath = "/ws"
)

// State is what a HUD shows for the latest slider event.
type State struct {
	Function string    `json:"function"`
	Value    float32   `json:"value"`
	Percent  int       `json:"percent"`
	Icon     string    `json:"icon"`
	At       time.Time `json:"at"`
}

// Envelope is the wire format of every message.
type Envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data *State     `json:"data,omitempty"`
}

// HubConfig sizes the hub queues. Zero values pick defaults.
type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	SendBuf int
	// BroadcastBuf is the hub inbound queue size.
	BroadcastBuf int
}

// Hub tracks connected clients and fans out state updates.
type Hub struct {
	logger *slog.Logger

	broadcast  chan State
	register   chan *client // unbuffered so a stopped hub never accepts
	unregister chan *client
	done       chan struct{}

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *State

	sendBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan State, bcastBuf),
		register:   make(chan *client),
		unregister: make(chan *client, 16),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled, then disconnects all
// clients.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("hud hub starting")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hud hub stopping")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			last := h.last
			h.mu.Unlock()
			h.logger.Info("hud client registered", "remote_addr", c.remoteAddr, "clients", n)

			if last != nil {
				msg, err := encode(MessageStateInit, *last)
				if err != nil {
					h.logger.Warn("hud marshal failed", "error", err)
					continue
				}
				select {
				case c.send <- msg:
				default:
					h.removeClient(c, "slow_client")
				}
			}

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case state := <-h.broadcast:
			msg, err := encode(MessageSliderChanged, state)
			if err != nil {
				h.logger.Warn("hud marshal failed", "error", err)
				continue
			}

			var slow []*client

			h.mu.Lock()
			h.last = &state
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// Publish queues a state update. It never blocks and drops the update when
// the hub queue is full.
func (h *Hub) Publish(state State) {
	select {
	case h.broadcast <- state:
	default:
		h.logger.Warn("hud broadcast queue full, dropping update", "function", state.Function)
	}
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Last returns the last broadcast state.
func (h *Hub) Last() (State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return State{}, false
	}
	return *h.last, true
}

// Only the Run goroutine closes send channels.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	close(c.send)
	h.logger.Info("hud client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

func encode(kind string, state State) ([]byte, error) {
	ts := time.Now().UTC()
	return json.Marshal(Envelope{Type: kind, Ts: &ts, Data: &state})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades requests and registers them as clients.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("hud upgrade failed", "error", err)
			return
		}

		c := &client{
			hub:        h,
			conn:       conn,
			send:       make(chan []byte, h.sendBuf),
			remoteAddr: r.RemoteAddr,
			logger:     h.logger,
		}
		select {
		case h.register <- c:
		case <-h.done:
			_ = conn.Close()
			return
		}

		// The request context ends when this handler returns.
		go c.writePump()
		go c.readPump()
	})
}

// Serve runs the hub and an HTTP server on addr until ctx is canceled.
func (h *Hub) Serve(ctx context.Context, addr, path string) error {
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, h.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go h.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.logger.Info("hud listening", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
