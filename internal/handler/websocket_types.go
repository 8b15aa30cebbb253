// internal/handler/websocket_types.go
package handler

import (
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pyrometer-service/internal/model"
)

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	UserAgent   string          `json:"user_agent"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`

	mu            sync.RWMutex
	subscriptions map[string]bool
}

// Subscribe adds a topic. A client without topics receives every event.
func (c *Client) Subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscriptions == nil {
		c.subscriptions = make(map[string]bool)
	}
	c.subscriptions[strings.ToLower(topic)] = true
}

// Unsubscribe removes a topic
func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, strings.ToLower(topic))
}

// Wants reports whether the client receives events of the given topic
func (c *Client) Wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions) == 0 || c.subscriptions[topic]
}

// Topics returns the subscribed topics
func (c *Client) Topics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topics := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		topics = append(topics, topic)
	}
	return topics
}

// eventTopic is the message type and subscription topic of an event
func eventTopic(eventType model.EventType) string {
	return strings.ToLower(string(eventType))
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ConnectionManager manages WebSocket connections
type ConnectionManager struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*Client),
	}
}

// Register registers a new client
func (cm *ConnectionManager) Register(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.clients[client.ID] = client
}

// Unregister removes a client and closes its send channel. It may be called
// more than once.
func (cm *ConnectionManager) Unregister(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if _, ok := cm.clients[client.ID]; ok {
		delete(cm.clients, client.ID)
		close(client.Send)
	}
}

// CloseAll unregisters every client
func (cm *ConnectionManager) CloseAll() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	for id, client := range cm.clients {
		delete(cm.clients, id)
		close(client.Send)
	}
}

// Broadcast queues data for every client subscribed to topic and returns the
// number of clients reached. Clients with a full queue are skipped.
func (cm *ConnectionManager) Broadcast(topic string, data []byte) int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	sent := 0
	for _, client := range cm.clients {
		if !client.Wants(topic) {
			continue
		}
		select {
		case client.Send <- data:
			sent++
		default:
		}
	}
	return sent
}

// SendTo queues data for one client unless it has been unregistered
func (cm *ConnectionManager) SendTo(client *Client, data []byte) bool {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if _, ok := cm.clients[client.ID]; !ok {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		return false
	}
}

// GetStats returns connection statistics
func (cm *ConnectionManager) GetStats() *ConnectionStats {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	stats := &ConnectionStats{
		TotalConnections: len(cm.clients),
		ByTopic:          make(map[string]int),
		Clients:          make([]*Client, 0, len(cm.clients)),
	}

	for _, client := range cm.clients {
		topics := client.Topics()
		if len(topics) == 0 {
			stats.ByTopic["all"]++
		}
		for _, topic := range topics {
			stats.ByTopic[topic]++
		}
		stats.Clients = append(stats.Clients, client)
	}

	return stats
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ByTopic          map[string]int `json:"by_topic"`
	Clients          []*Client      `json:"clients"`
}
