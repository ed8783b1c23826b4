// Package streamclient consumes the product change event stream over
// server-sent events. It reconnects with bounded exponential backoff
// and tells the caller when to fall back to polling.
package streamclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

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

// Event is one product change notification
type Event struct {
	Type      EventType `json:"type"`
	ProductID string    `json:"productId,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// ChangeFunc receives product change events. It is called for create,
// update and delete events only; connected and heartbeat frames are
// handled internally
type ChangeFunc func(Event)

// Options configures a subscription
type Options struct {
	// Disabled makes Subscribe return an inert subscription that never
	// connects. Use this when the server has the stream turned off
	Disabled bool
	// MaxAttempts caps consecutive delayed reconnects after a lost or
	// failed connection before giving up (default 5, yielding delays of
	// 1,2,4,8,16s at the default BaseDelay)
	MaxAttempts int
	// BaseDelay is the first reconnect delay; each further attempt
	// doubles it (default 1s)
	BaseDelay time.Duration
	// OnGiveUp is called once when MaxAttempts consecutive attempts
	// have failed. The caller should degrade to polling
	OnGiveUp func()
	// HTTPClient overrides the default client. Streaming requests must
	// not carry a client-level timeout
	HTTPClient *http.Client
	// Logger receives connection lifecycle logs
	Logger *zap.Logger
}

func (o *Options) withDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Subscription is a live (or inert) stream subscription
type Subscription struct {
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Close cancels the subscription, including any pending reconnect
// timer, and waits for the reader goroutine to finish
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed when the subscription has fully stopped, whether by
// Close, context cancellation or giving up after repeated failures
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe opens a subscription to the event stream at url and
// invokes onChange for every product change event. The subscription
// runs until ctx is cancelled, Close is called, or the reconnect
// budget is exhausted
func Subscribe(ctx context.Context, url string, onChange ChangeFunc, opts Options) *Subscription {
	opts.withDefaults()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if opts.Disabled {
		close(sub.done)
		return sub
	}

	go sub.run(subCtx, url, onChange, opts)
	return sub
}

func (s *Subscription) run(ctx context.Context, url string, onChange ChangeFunc, opts Options) {
	defer close(s.done)

	attempt := 0
	for {
		opened, err := stream(ctx, url, onChange, opts)
		if ctx.Err() != nil {
			return
		}

		// A connection that delivered its connected frame counts as a
		// success and resets the failure budget
		if opened {
			attempt = 0
		}
		attempt++

		opts.Logger.Warn("Stream connection lost",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err))

		// The budget counts delayed reconnects, not the connection that
		// just failed: give up only once MaxAttempts reconnects have
		// also failed
		if attempt > opts.MaxAttempts {
			opts.Logger.Warn("Giving up on stream, degrade to polling",
				zap.String("url", url),
				zap.Int("attempts", attempt))
			if opts.OnGiveUp != nil {
				opts.OnGiveUp()
			}
			return
		}

		delay := opts.BaseDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// stream opens one connection and relays events until it breaks.
// It reports whether the stream was successfully opened
func stream(ctx context.Context, url string, onChange ChangeFunc, opts Options) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	opened := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			opts.Logger.Debug("Skipping malformed stream frame", zap.Error(err))
			continue
		}

		switch event.Type {
		case EventConnected:
			opened = true
			opts.Logger.Debug("Stream connected", zap.String("url", url))
		case EventHeartbeat:
			// Keepalive only
		case EventCreate, EventUpdate, EventDelete:
			if onChange != nil {
				onChange(event)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return opened, err
	}
	return opened, fmt.Errorf("stream closed by server")
}
