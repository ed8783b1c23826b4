package catalog

import "context"

// ChangeNotifier publishes product change notifications to stream
// subscribers. Implementations must not block: a failed or slow
// notification never fails the write that triggered it
type ChangeNotifier interface {
	ProductCreated(ctx context.Context, productID string)
	ProductUpdated(ctx context.Context, productID string)
	ProductDeleted(ctx context.Context, productID string)
}

// NopNotifier discards all notifications. Used when the realtime
// stream is disabled by configuration
type NopNotifier struct{}

func (NopNotifier) ProductCreated(ctx context.Context, productID string) {}
func (NopNotifier) ProductUpdated(ctx context.Context, productID string) {}
func (NopNotifier) ProductDeleted(ctx context.Context, productID string) {}
