package stream

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/hllmltyl/geri-donusum/internal/cache"
	"github.com/hllmltyl/geri-donusum/internal/point"
	"github.com/hllmltyl/geri-donusum/internal/session"
	"github.com/hllmltyl/geri-donusum/internal/view"
	"github.com/hllmltyl/geri-donusum/internal/visibility"
)

// Frame is one message pushed to a map client.
type Frame struct {
	Type     string                 `json:"type"`
	Points   []point.RecyclingPoint `json:"points,omitempty"`
	Fit      *view.FitViewport      `json:"fit,omitempty"`
	Degraded bool                   `json:"degraded,omitempty"`
}

// inbound is what map clients send back: viewport centers while selecting a
// location, and filter edits or applies.
type inbound struct {
	Type     string         `json:"type"`
	Lat      float64        `json:"lat"`
	Lng      float64        `json:"lng"`
	Query    string         `json:"query"`
	Category point.Category `json:"category"`
}

// Client is one connected map session. Each carries its own viewer context
// and filter view, so two clients see different marker sets from the same
// snapshot.
type Client struct {
	Viewer visibility.ViewerContext
	View   *view.View
	Send   chan []byte

	mu     sync.Mutex
	closed bool
}

// send queues a payload unless the client is closed. Broadcasts run on the
// cache-notification goroutine concurrently with Unregister, so the closed
// check and the channel send must share the client lock.
func (c *Client) send(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- payload:
	default:
		// Slow consumer, drop the frame; the next snapshot supersedes it.
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// Hub renders cache snapshots per connected client and routes inbound
// gestures to the client's session machine.
type Hub struct {
	cache    *cache.Cache
	sessions *session.Manager

	mu          sync.RWMutex
	clients     map[*Client]struct{}
	unsubscribe func()
}

func NewHub(c *cache.Cache, sessions *session.Manager) *Hub {
	h := &Hub{
		cache:    c,
		sessions: sessions,
		clients:  map[*Client]struct{}{},
	}
	h.unsubscribe = c.Subscribe(h.broadcast)
	return h
}

// Register adds a client and immediately pushes the current marker set.
func (h *Hub) Register(viewer visibility.ViewerContext) *Client {
	client := &Client{
		Viewer: viewer,
		View:   view.New(),
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.push(client, client.View.Render(h.cache.Snapshot(), viewer), nil)
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	h.mu.Unlock()

	client.close()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleMessage processes one inbound frame from a client.
func (h *Hub) HandleMessage(client *Client, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("stream decode error: %v", err)
		return
	}

	switch msg.Type {
	case "viewport":
		machine := h.sessions.ForViewer(client.Viewer)
		machine.ViewportChanged(point.Coordinate{Lat: msg.Lat, Lng: msg.Lng})
	case "filter":
		client.View.SetFilter(msg.Query, msg.Category)
		h.push(client, client.View.Render(h.cache.Snapshot(), client.Viewer), nil)
	case "apply":
		rendered, fit := client.View.Apply(h.cache.Snapshot(), client.Viewer, msg.Query, msg.Category)
		h.push(client, rendered, fit)
	}
}

func (h *Hub) broadcast(snapshot []point.RecyclingPoint) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.push(client, client.View.Render(snapshot, client.Viewer), nil)
	}
}

func (h *Hub) push(client *Client, points []point.RecyclingPoint, fit *view.FitViewport) {
	if points == nil {
		points = []point.RecyclingPoint{}
	}
	frame := Frame{Type: "points", Points: points, Degraded: h.cache.Degraded() != nil}
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("stream marshal error: %v", err)
		return
	}
	client.send(payload)

	if fit != nil {
		fitPayload, err := json.Marshal(Frame{Type: "fit", Fit: fit})
		if err != nil {
			return
		}
		client.send(fitPayload)
	}
}

// Close detaches the hub from the cache and disconnects every client.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		delete(h.clients, client)
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}
