package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis Pub/Sub channel for product change events
const DefaultChannel = "storefront:product_events"

// RedisBridge fans product change events out across server instances
// using Redis Pub/Sub. Each instance publishes its local events and
// rebroadcasts events received from the others into its own hub
type RedisBridge struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	hub        *Hub
	logger     *zap.Logger
	cancelFn   context.CancelFunc
}

// RedisBridgeOption is a functional option for configuring the bridge
type RedisBridgeOption func(*RedisBridge)

// WithBridgeChannel sets the Pub/Sub channel name
func WithBridgeChannel(channel string) RedisBridgeOption {
	return func(b *RedisBridge) {
		b.channel = channel
	}
}

// WithBridgeLogger sets the logger for the bridge
func WithBridgeLogger(logger *zap.Logger) RedisBridgeOption {
	return func(b *RedisBridge) {
		b.logger = logger
	}
}

// NewRedisBridge creates a bridge with its own Redis connection
func NewRedisBridge(cfg config.RedisConfig, hub *Hub, opts ...RedisBridgeOption) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	bridge := newRedisBridge(client, hub, opts...)
	bridge.ownsClient = true
	return bridge, nil
}

// NewRedisBridgeWithClient creates a bridge with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it
func NewRedisBridgeWithClient(client *redis.Client, hub *Hub, opts ...RedisBridgeOption) *RedisBridge {
	return newRedisBridge(client, hub, opts...)
}

func newRedisBridge(client *redis.Client, hub *Hub, opts ...RedisBridgeOption) *RedisBridge {
	bridge := &RedisBridge{
		client:  client,
		channel: DefaultChannel,
		hub:     hub,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(bridge)
	}

	return bridge
}

// Publish sends an event to all instances, including this one.
// The local hub receives it via the subscription so every instance
// follows the same delivery path
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish stream event",
			zap.String("channel", b.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Start subscribes to the channel and rebroadcasts received events
// into the local hub until Stop is called
func (b *RedisBridge) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancelFn = cancel

	go b.subscribeLoop(ctx)
	b.logger.Info("Redis stream bridge started", zap.String("channel", b.channel))
}

// Stop ends the subscription and closes the client if owned
func (b *RedisBridge) Stop() {
	if b.cancelFn != nil {
		b.cancelFn()
	}
	if b.ownsClient {
		if err := b.client.Close(); err != nil {
			b.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
}

func (b *RedisBridge) subscribeLoop(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payload is already the serialized event
			b.hub.BroadcastRaw([]byte(msg.Payload))
		}
	}
}
