package services

import (
	"fmt"
	"sync"

	"github.com/collabflow/backend/internal/models"
	"github.com/google/uuid"
)

// Event is a realtime frame: {"event": name, "data": payload}.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Broadcaster fans events out to the connections joined to a room.
type Broadcaster interface {
	Broadcast(room, event string, payload interface{})
	BroadcastExcept(room, exceptConnID, event string, payload interface{})
}

// RoomPublisher forwards room events to other instances.
type RoomPublisher interface {
	Publish(room, exceptConnID string, ev Event)
}

// ProjectRoom names the realtime room of a project.
func ProjectRoom(projectID uint) string {
	return fmt.Sprintf("project:%d", projectID)
}

// Client is one realtime connection of an authenticated user.
type Client struct {
	ID     string
	UserID uint
	User   *models.User

	send   chan Event
	rooms  map[string]struct{}
	closed bool
}

// Send returns the channel the transport drains. It is closed on Unregister.
func (c *Client) Send() <-chan Event {
	return c.send
}

// Hub manages realtime connections and room broadcasting
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	rooms      map[string]map[string]*Client
	bufferSize int
	publisher  RoomPublisher
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		bufferSize: bufferSize,
	}
}

// SetPublisher attaches a cross-instance relay. Must be called before serving.
func (h *Hub) SetPublisher(p RoomPublisher) {
	h.publisher = p
}

// Register creates a client with a buffered channel to prevent blocking
func (h *Hub) Register(user *models.User) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: user.ID,
		User:   user,
		send:   make(chan Event, h.bufferSize),
		rooms:  make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	return c
}

// Unregister removes the client from every room and closes its channel.
// It returns the rooms the client had joined.
func (h *Hub) Unregister(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return nil
	}
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		h.removeFromRoom(c, room)
		rooms = append(rooms, room)
	}
	delete(h.clients, c.ID)
	c.closed = true
	close(c.send)
	return rooms
}

// Join adds the client to room. It reports false if it was already there.
func (h *Hub) Join(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return false
	}
	if _, ok := c.rooms[room]; ok {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.ID] = c
	c.rooms[room] = struct{}{}
	return true
}

// Leave removes the client from room. It reports false if it was not there.
func (h *Hub) Leave(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := c.rooms[room]; !ok {
		return false
	}
	h.removeFromRoom(c, room)
	return true
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// InRoom reports whether the client has joined room.
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// Broadcast sends an event to every connection in room.
func (h *Hub) Broadcast(room, event string, payload interface{}) {
	h.BroadcastExcept(room, "", event, payload)
}

// BroadcastExcept sends an event to every connection in room but exceptConnID.
func (h *Hub) BroadcastExcept(room, exceptConnID, event string, payload interface{}) {
	ev := Event{Event: event, Data: payload}
	h.DeliverLocal(room, exceptConnID, ev)
	if h.publisher != nil {
		h.publisher.Publish(room, exceptConnID, ev)
	}
}

// DeliverLocal sends ev to this instance's connections only.
func (h *Hub) DeliverLocal(room, exceptConnID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.rooms[room] {
		if id == exceptConnID {
			continue
		}
		// Non-blocking send - drop event if client buffer is full
		select {
		case c.send <- ev:
		default:
		}
	}
}

// SendTo delivers an event to a single connection.
func (h *Hub) SendTo(c *Client, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if c.closed {
		return
	}
	select {
	case c.send <- Event{Event: event, Data: payload}:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unregisters every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}
