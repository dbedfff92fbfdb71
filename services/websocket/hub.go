package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"schedboard/models"

	fiberws "github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Hub maintains the set of connected editor sessions and pushes full
// snapshots to them on every committed change. Clients never receive diffs.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound snapshot messages.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread safety
	mutex sync.RWMutex
}

// Client is a middleman between a websocket connection and the hub. The
// connection itself lives in the pump goroutines.
type Client struct {
	hub *Hub

	// Buffered channel of outbound messages.
	send chan []byte

	// User ID for logging
	userID uint
}

// SnapshotMessage wraps a snapshot pushed over the wire, tagged with the
// slot it belongs to.
type SnapshotMessage struct {
	Type     string          `json:"type"`
	Slot     string          `json:"slot"`
	Snapshot models.Snapshot `json:"snapshot"`
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("WebSocket client connected. User ID: %d", client.userID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			log.Printf("WebSocket client disconnected. User ID: %d", client.userID)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastSnapshot pushes a slot's full snapshot to every connected client.
func (h *Hub) BroadcastSnapshot(slot string, snap models.Snapshot) {
	data, err := json.Marshal(SnapshotMessage{Type: "snapshot", Slot: slot, Snapshot: snap})
	if err != nil {
		log.Printf("Error marshaling snapshot message: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Println("Broadcast channel is full")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeFiberWS attaches an upgraded Fiber websocket connection to the hub
// and pumps it until the peer disconnects.
func (h *Hub) ServeFiberWS(c *fiberws.Conn, userID uint) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ServeFiberWS panic for user %d: %v", userID, r)
		}
	}()

	client := &Client{
		hub:    h,
		send:   make(chan []byte, 256),
		userID: userID,
	}

	h.register <- client

	// Start write pump in a goroutine, run read pump in this goroutine.
	go h.writePump(client, c)
	h.readPump(client, c)
}

func (h *Hub) writePump(client *Client, c *fiberws.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("writePump panic for user %d: %v", client.userID, r)
		}
		h.unregister <- client
		c.Close()
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.WriteMessage(fiberws.CloseMessage, []byte{})
				return
			}
			if err := c.WriteMessage(fiberws.TextMessage, message); err != nil {
				log.Printf("WebSocket write error for user %d: %v", client.userID, err)
				return
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(fiberws.PingMessage, nil); err != nil {
				log.Printf("WebSocket ping error for user %d: %v", client.userID, err)
				return
			}
		}
	}
}

func (h *Hub) readPump(client *Client, c *fiberws.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("readPump panic for user %d: %v", client.userID, r)
		}
		h.unregister <- client
		c.Close()
	}()

	c.SetReadLimit(maxMessageSize)
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Snapshots only flow server to client; inbound frames are drained
		// for keepalive.
		if _, _, err := c.ReadMessage(); err != nil {
			if fiberws.IsUnexpectedCloseError(err, fiberws.CloseGoingAway, fiberws.CloseAbnormalClosure) {
				log.Printf("WebSocket unexpected close for user %d: %v", client.userID, err)
			}
			break
		}
	}
}
