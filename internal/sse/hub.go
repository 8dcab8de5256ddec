package sse

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"posenet-live-go/internal/core/pose"
)

// Client represents a single connected SSE client.
// It's essentially a channel where we send messages destined for this client.
type Client chan []byte

// Hub manages the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[Client]bool

	// Inbound messages from the application (e.g., a freshly processed frame).
	broadcast chan []byte

	// Register requests from the clients.
	register chan Client

	// Unregister requests from clients.
	unregister chan Client

	// Mutex to protect concurrent access to the clients map.
	mu sync.Mutex
}

// FrameData defines the structure of the data sent via SSE after each
// processed frame. Keep this lean, only include what the page needs to
// update its counters and overlay.
type FrameData struct {
	Timestamp time.Time   `json:"timestamp"`
	PoseCount int         `json:"pose_count"`
	Poses     []pose.Pose `json:"poses,omitempty"`
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan Client),
		unregister: make(chan Client),
		clients:    make(map[Client]bool),
	}
}

// Run starts the hub's processing loop.
// It should be run in a separate goroutine.
func (h *Hub) Run() {
	log.Println("SSE Hub started.")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("SSE Client registered. Total clients: %d\n", len(h.clients))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client) // Close the channel to signal the client handler to stop.
				log.Printf("SSE Client unregistered. Total clients: %d\n", len(h.clients))
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				// Use a select with a default case to prevent blocking if a client's channel is full.
				select {
				case client <- message:
					// Message sent successfully
				default:
					// Client channel is full or closed. The client loses this frame;
					// the next broadcast will catch it up.
					log.Println("Warning: SSE client channel full or closed. Skipping message.")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a new client to the hub.
func (h *Hub) Register(client Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client Client) {
	h.unregister <- client
}

// Broadcast sends a message to all registered clients.
func (h *Hub) Broadcast(message []byte) {
	// Avoid blocking the caller if the broadcast channel is full
	select {
	case h.broadcast <- message:
	default:
		log.Println("Warning: SSE broadcast channel full. Message dropped.")
	}
}

// BroadcastFrame formats and broadcasts the result of a processed frame.
func (h *Hub) BroadcastFrame(poses []pose.Pose) {
	data := FrameData{
		Timestamp: time.Now(),
		PoseCount: len(poses),
		Poses:     poses,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshalling FrameData for SSE: %v\n", err)
		return
	}

	h.Broadcast(jsonData)
}
