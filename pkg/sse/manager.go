package sse

import (
	"io"
	"log"

	"github.com/gin-gonic/gin"
)

// Event is a named payload delivered to a connected client
type Event struct {
	Name    string
	Payload interface{}
}

// Client represents a single live SSE connection belonging to a user
type Client struct {
	UserID string
	Events chan Event
}

type message struct {
	userID string
	event  Event
}

// Manager tracks live SSE connections grouped by user ID and
// broadcasts events to every connection of a given user
type Manager struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	clients    map[string]map[*Client]bool
}

func NewManager() *Manager {
	return &Manager{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		clients:    make(map[string]map[*Client]bool),
	}
}

// Run owns the client registry. Start it once with `go manager.Run()`.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			if m.clients[client.UserID] == nil {
				m.clients[client.UserID] = make(map[*Client]bool)
			}
			m.clients[client.UserID][client] = true
			log.Printf("[SSE] Client connected for user %s (%d active)", client.UserID, len(m.clients[client.UserID]))

		case client := <-m.unregister:
			if conns, ok := m.clients[client.UserID]; ok {
				if conns[client] {
					delete(conns, client)
					close(client.Events)
					if len(conns) == 0 {
						delete(m.clients, client.UserID)
					}
				}
			}
			log.Printf("[SSE] Client disconnected for user %s", client.UserID)

		case msg := <-m.broadcast:
			for client := range m.clients[msg.userID] {
				select {
				case client.Events <- msg.event:
				default:
					// Slow consumer, drop rather than block the registry
				}
			}
		}
	}
}

// Subscribe registers a new live connection for the given user
func (m *Manager) Subscribe(userID string) *Client {
	client := &Client{
		UserID: userID,
		Events: make(chan Event, 16),
	}
	m.register <- client
	return client
}

// Unsubscribe removes a connection from the registry
func (m *Manager) Unsubscribe(client *Client) {
	m.unregister <- client
}

// SendToUser broadcasts an event to every live connection of the user.
// Delivery is best-effort; users with no connections are a no-op.
func (m *Manager) SendToUser(userID, event string, payload interface{}) {
	m.broadcast <- message{
		userID: userID,
		event:  Event{Name: event, Payload: payload},
	}
}

// ServeHTTP streams events for the authenticated user over SSE
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	client := m.Subscribe(userID)
	defer m.Unsubscribe(client)

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent(event.Name, event.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
