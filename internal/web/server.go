// Package web pushes each committed session.Snapshot to connected browser
// clients over a websocket hub, the Go-native analogue of the teacher's
// SUMO-bridge dashboard (web/server.go) adapted from a metrics-polling
// broadcaster to a step-driven one: the session calls Broadcast after every
// Step instead of the hub polling a shared manager on a ticker.
package web

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/lukaslovas/microtrafficsim/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected websocket clients and fans a Snapshot out to all of
// them whenever Broadcast is called.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty client hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// HandleWS upgrades an HTTP request to a websocket connection and registers
// it as a broadcast recipient until it disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("web: upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	log.WithField("clients", count).Info("web: client connected")

	go h.drain(conn)
}

// drain discards inbound messages from a client so the read buffer never
// fills and blocks the connection; the dashboard is push-only.
func (h *Hub) drain(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		h.mu.Lock()
		delete(h.clients, conn)
		count := len(h.clients)
		h.mu.Unlock()
		log.WithField("clients", count).Info("web: client disconnected")
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast marshals snap as JSON and pushes it to every connected client,
// dropping any client whose write fails.
func (h *Hub) Broadcast(snap session.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		log.WithError(err).Warn("web: marshal snapshot failed")
		return
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.WithError(err).Warn("web: write failed, dropping client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount reports how many clients are currently connected, for health
// endpoints and tests.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
