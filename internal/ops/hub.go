package ops

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Hub fans samples out to every connected websocket.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan Sample
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan Sample, 16),
		log:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case sample := <-h.ch:
			h.send(sample)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Broadcast queues sample; it is dropped when the queue is full.
func (h *Hub) Broadcast(sample Sample) {
	select {
	case h.ch <- sample:
	default:
		h.log.Warn("ops hub queue full, sample dropped")
	}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) send(sample Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(sample); err != nil {
			h.log.Debug("ops client dropped", "remote", conn.RemoteAddr().String(), "error", err)
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}
