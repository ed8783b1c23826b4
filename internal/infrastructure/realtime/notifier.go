package realtime

import (
	"context"

	"go.uber.org/zap"
)

// HubNotifier broadcasts product changes to the local hub only.
// Used for single-instance deployments without Redis
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the local hub
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) ProductCreated(ctx context.Context, productID string) {
	n.hub.Broadcast(NewEvent(EventCreate, productID))
}

func (n *HubNotifier) ProductUpdated(ctx context.Context, productID string) {
	n.hub.Broadcast(NewEvent(EventUpdate, productID))
}

func (n *HubNotifier) ProductDeleted(ctx context.Context, productID string) {
	n.hub.Broadcast(NewEvent(EventDelete, productID))
}

// BridgeNotifier publishes product changes through the Redis bridge
// so every server instance, this one included, delivers them to its
// subscribers. Publish failures are logged and swallowed: a stream
// notification must never fail the write that triggered it
type BridgeNotifier struct {
	bridge *RedisBridge
	logger *zap.Logger
}

// NewBridgeNotifier creates a notifier backed by the Redis bridge
func NewBridgeNotifier(bridge *RedisBridge, logger *zap.Logger) *BridgeNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BridgeNotifier{bridge: bridge, logger: logger}
}

func (n *BridgeNotifier) ProductCreated(ctx context.Context, productID string) {
	n.publish(ctx, NewEvent(EventCreate, productID))
}

func (n *BridgeNotifier) ProductUpdated(ctx context.Context, productID string) {
	n.publish(ctx, NewEvent(EventUpdate, productID))
}

func (n *BridgeNotifier) ProductDeleted(ctx context.Context, productID string) {
	n.publish(ctx, NewEvent(EventDelete, productID))
}

func (n *BridgeNotifier) publish(ctx context.Context, event Event) {
	if err := n.bridge.Publish(ctx, event); err != nil {
		n.logger.Warn("Failed to publish product change event",
			zap.String("type", string(event.Type)),
			zap.String("product_id", event.ProductID),
			zap.Error(err))
	}
}
