package devserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub tracks live chat sockets so they can be dropped on demand
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]*sync.Mutex
	wg     sync.WaitGroup
	served int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{conns: map[*websocket.Conn]*sync.Mutex{}}
}

func (h *Hub) add(conn *websocket.Conn) *sync.Mutex {
	mu := &sync.Mutex{}
	h.mu.Lock()
	h.conns[conn] = mu
	h.served++
	h.mu.Unlock()
	h.wg.Add(1)
	return mu
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		h.wg.Done()
	}
}

// Len returns the number of live connections
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Served returns how many connections were ever accepted
func (h *Hub) Served() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.served
}

// Disconnect drops every live connection without a close handshake, the way
// a crashed server would. It returns how many were dropped.
func (h *Hub) Disconnect() int {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.NetConn().Close()
	}
	return len(conns)
}

// Shutdown closes every connection cleanly and waits for handlers to finish
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.conns))
	for c, mu := range h.conns {
		conns[c] = mu
	}
	h.mu.Unlock()

	for c, mu := range conns {
		mu.Lock()
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		_ = c.Close()
		mu.Unlock()
	}
	h.wg.Wait()
}
