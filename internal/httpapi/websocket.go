package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// wsClient is a single WebSocket subscriber managed by the Hub.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub manages the /api/live subscribers and broadcasts refresh events to
// all of them.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	log        *slog.Logger
}

// NewHub creates a Hub with initialised channels and client map.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 8),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run is the Hub's event loop. It returns when ctx is cancelled, closing
// every remaining connection and the done channel so that connection
// goroutines still holding a client can exit instead of blocking on an
// unserviced register/unregister send.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			close(h.done)
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast queues an event of the given type for every subscriber.
func (h *Hub) Broadcast(eventType string) {
	msg, _ := json.Marshal(map[string]string{"type": eventType})
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("dropping broadcast, hub busy", "type", eventType)
	}
}

// handleLive upgrades the connection and registers it with the hub. The
// server only pushes; anything the client sends is discarded.
func (s *DashboardServer) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket accept", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 4)}
	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}

	go client.writePump(s.hub)
	client.readPump(s.hub)
}

// detach hands the client back to the hub, or returns immediately when the
// hub has already shut down.
func (c *wsClient) detach(h *Hub) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// writePump forwards hub messages to the connection until the send channel
// closes.
func (c *wsClient) writePump(h *Hub) {
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			break
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

// readPump discards incoming messages and unregisters on close.
func (c *wsClient) readPump(h *Hub) {
	defer c.detach(h)
	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}
