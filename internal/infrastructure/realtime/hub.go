package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType identifies what kind of change an event describes
type EventType string

const (
	EventConnected EventType = "connected"
	EventHeartbeat EventType = "heartbeat"
	EventCreate    EventType = "create"
	EventUpdate    EventType = "update"
	EventDelete    EventType = "delete"
)

// Event is the wire format broadcast to product stream subscribers
type Event struct {
	Type      EventType `json:"type"`
	ProductID string    `json:"productId,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, productID string) Event {
	return Event{
		Type:      eventType,
		ProductID: productID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client represents a connected stream subscriber
type Client struct {
	ID   string
	Chan chan []byte
	Done chan struct{}
}

// Hub fans product change events out to connected SSE clients.
// A slow client never blocks the others: events it cannot buffer
// are dropped for that client only
type Hub struct {
	logger     *zap.Logger
	clients    sync.Map // map[string]*Client
	bufferSize int
	heartbeat  time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	startMu    sync.Mutex
	maxClients int
	count      int
	countMu    sync.Mutex
}

// HubOption is a functional option for configuring the hub
type HubOption func(*Hub)

// WithLogger sets the hub logger
func WithLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithHeartbeat sets the heartbeat interval
func WithHeartbeat(interval time.Duration) HubOption {
	return func(h *Hub) {
		h.heartbeat = interval
	}
}

// WithClientBuffer sets the per-client channel buffer size
func WithClientBuffer(size int) HubOption {
	return func(h *Hub) {
		h.bufferSize = size
	}
}

// WithMaxClients caps concurrent subscribers (0 means unlimited)
func WithMaxClients(max int) HubOption {
	return func(h *Hub) {
		h.maxClients = max
	}
}

// NewHub creates a new broadcast hub
func NewHub(opts ...HubOption) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		logger:     zap.NewNop(),
		bufferSize: 16,
		heartbeat:  30 * time.Second,
		ctx:        ctx,
		cancel:     cancel,
		maxClients: 10000,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Start begins the heartbeat loop. Calling Start twice is a no-op
func (h *Hub) Start() {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	if h.started {
		return
	}
	h.started = true

	go h.sendHeartbeats()
	h.logger.Info("Product stream hub started")
}

// Shutdown disconnects all clients and stops the heartbeat loop
func (h *Hub) Shutdown() {
	h.cancel()

	h.clients.Range(func(key, value any) bool {
		if client, ok := value.(*Client); ok {
			close(client.Done)
		}
		return true
	})

	h.logger.Info("Product stream hub stopped")
}

// Done exposes the hub lifecycle context for handlers to watch
func (h *Hub) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Register adds a new subscriber and returns it, or nil when the
// hub is at its client cap
func (h *Hub) Register() *Client {
	h.countMu.Lock()
	if h.maxClients > 0 && h.count >= h.maxClients {
		h.countMu.Unlock()
		return nil
	}
	h.count++
	h.countMu.Unlock()

	client := &Client{
		ID:   uuid.New().String(),
		Chan: make(chan []byte, h.bufferSize),
		Done: make(chan struct{}),
	}
	h.clients.Store(client.ID, client)

	h.logger.Debug("Stream client connected", zap.String("client_id", client.ID))
	return client
}

// Unregister removes a subscriber. The channel is deliberately left
// open: a broadcast racing with the removal may still hold the client
// from its registry snapshot, and a send on a closed channel would
// panic. The orphaned channel is garbage-collected with the client
func (h *Hub) Unregister(client *Client) {
	if _, loaded := h.clients.LoadAndDelete(client.ID); !loaded {
		return
	}

	h.countMu.Lock()
	h.count--
	h.countMu.Unlock()

	h.logger.Debug("Stream client disconnected", zap.String("client_id", client.ID))
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.countMu.Lock()
	defer h.countMu.Unlock()
	return h.count
}

// Broadcast serializes the event once and delivers it to every
// connected client
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal stream event", zap.Error(err))
		return
	}
	h.broadcastRaw(data)
}

// BroadcastRaw delivers pre-serialized event data to every client.
// Used by the Redis bridge, which receives events already encoded
func (h *Hub) BroadcastRaw(data []byte) {
	h.broadcastRaw(data)
}

func (h *Hub) broadcastRaw(data []byte) {
	h.clients.Range(func(key, value any) bool {
		client, ok := value.(*Client)
		if !ok {
			return true
		}

		select {
		case client.Chan <- data:
		default:
			// Channel full, client is too slow to keep up
			h.logger.Warn("Client channel full, dropping event",
				zap.String("client_id", client.ID))
		}
		return true
	})
}

// sendHeartbeats periodically broadcasts a heartbeat to keep
// intermediaries from closing idle connections
func (h *Hub) sendHeartbeats() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.Broadcast(NewEvent(EventHeartbeat, ""))
		}
	}
}
