package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoomModerators receives every moderation event.
const RoomModerators = "moderators"

var ErrHubBusy = errors.New("websocket hub broadcast queue is full")

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
	done       chan struct{}
	log        logrus.FieldLogger
}

type Message struct {
	Type      string             `json:"type"`
	RoomID    string             `json:"room_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id,omitempty"`
	Timestamp int64              `json:"timestamp"`
	Data      interface{}        `json:"data,omitempty"`
}

func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
		log:        log.WithField("component", "websocket_hub"),
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Broadcast queues msg for delivery. It never blocks the caller.
func (h *Hub) Broadcast(msg Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = getCurrentTimestamp()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubBusy
	default:
		return ErrHubBusy
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(roomID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.joinRoom(client, "user_"+client.UserID.Hex())
	if client.UserType == "admin" {
		h.joinRoom(client, RoomModerators)
	}
	h.log.WithField("user_id", client.UserID.Hex()).Debug("Client registered")

	h.sendToClient(client, Message{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		h.removeClient(client)
		h.log.WithField("user_id", client.UserID.Hex()).Debug("Client unregistered")
	}
}

func (h *Hub) broadcastMessage(data []byte) {
	var msg struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.WithError(err).Warn("Dropping malformed broadcast")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	targets := h.clients
	if msg.RoomID != "" {
		targets = h.rooms[msg.RoomID]
	}
	for client := range targets {
		select {
		case client.send <- data:
		default:
			h.log.WithField("user_id", client.UserID.Hex()).Warn("Dropping slow websocket client")
			h.removeClient(client)
		}
	}
}

// sendToClient must be called with the write lock held.
func (h *Hub) sendToClient(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.removeClient(client)
	}
}

// removeClient must be called with the write lock held.
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID := range client.rooms {
		if room, exists := h.rooms[roomID]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		h.removeClient(client)
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
